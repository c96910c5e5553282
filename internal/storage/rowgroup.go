package storage

import (
	"fmt"

	"colonnade/internal/compression"
)

// RowGroup is a set of compressed column segments spanning the same rows of
// a table: one segment per column, all with the same value count.
type RowGroup struct {
	segments   []*compression.CompressedSegment
	valueCount int
}

// newRowGroup validates that every segment carries the same value count
// before wrapping them.
func newRowGroup(segments []*compression.CompressedSegment) (*RowGroup, error) {
	if len(segments) == 0 {
		return &RowGroup{}, nil
	}
	n := segments[0].ValueCount
	for i, s := range segments {
		if s.ValueCount != n {
			return nil, fmt.Errorf("storage: row group column %d has %d values, want %d", i, s.ValueCount, n)
		}
	}
	return &RowGroup{segments: segments, valueCount: n}, nil
}

// ValueCount returns the number of rows in this row group.
func (rg *RowGroup) ValueCount() int { return rg.valueCount }

// Segment returns the compressed segment for column col.
func (rg *RowGroup) Segment(col int) *compression.CompressedSegment { return rg.segments[col] }
