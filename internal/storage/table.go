package storage

import (
	"fmt"
	"sync"

	"colonnade/internal/compression"
	"colonnade/internal/types"
)

// DefaultRowGroupSize is the number of buffered rows that triggers a flush
// into a new compressed row group.
const DefaultRowGroupSize = 8192

// Row is one row of input to AppendRows: one value per schema column, in
// column order.
type Row []types.Value

// Table is an ordered sequence of column-segment row groups with an
// immutable schema. New appends accumulate in a row-major staging buffer
// and form new row groups once the buffer reaches rowGroupSize.
type Table struct {
	mu sync.RWMutex

	schema       Schema
	rowGroupSize int
	selector     *compression.Selector
	cache        *Cache

	rowGroups []*RowGroup
	staging   []Row
}

// NewTable allocates an empty table with the given schema.
func NewTable(schema Schema) *Table {
	return &Table{
		schema:       schema,
		rowGroupSize: DefaultRowGroupSize,
		selector:     compression.NewSelector(),
	}
}

// WithRowGroupSize overrides the flush threshold (primarily for tests that
// want to exercise multiple row groups without 8192 rows).
func (t *Table) WithRowGroupSize(n int) *Table {
	t.rowGroupSize = n
	return t
}

// WithCache attaches an optional decompressed-column cache. A nil cache
// is always correct, just slower.
func (t *Table) WithCache(c *Cache) *Table {
	t.cache = c
	return t
}

// Schema returns the table's immutable schema.
func (t *Table) Schema() Schema {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.schema
}

// RowCount returns the total number of rows across flushed row groups and
// the staging buffer.
func (t *Table) RowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := len(t.staging)
	for _, rg := range t.rowGroups {
		n += rg.ValueCount()
	}
	return n
}

// AppendRows buffers rows; once the buffer reaches the row-group size it is
// flushed: each column is passed through the compression selector and
// stored as a new row group.
func (t *Table) AppendRows(rows []Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range rows {
		if len(r) != len(t.schema.Columns) {
			return fmt.Errorf("storage: row has %d values, schema has %d columns", len(r), len(t.schema.Columns))
		}
		t.staging = append(t.staging, r)
		if len(t.staging) >= t.rowGroupSize {
			if err := t.flushLocked(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush forces any buffered rows into a new row group, regardless of
// whether the row-group size threshold has been reached.
func (t *Table) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

func (t *Table) flushLocked() error {
	if len(t.staging) == 0 {
		return nil
	}
	cols := len(t.schema.Columns)
	columnValues := make([][]types.Value, cols)
	columnValid := make([]*types.ValidityMask, cols)
	for c := 0; c < cols; c++ {
		columnValues[c] = make([]types.Value, len(t.staging))
		columnValid[c] = types.NewValidityMask(len(t.staging))
	}
	for r, row := range t.staging {
		for c, v := range row {
			columnValues[c][r] = v
			if v.Null {
				columnValid[c].SetBit(r, false)
			}
		}
	}

	segments := make([]*compression.CompressedSegment, cols)
	for c := 0; c < cols; c++ {
		seg, err := t.selector.Compress(columnValues[c], columnValid[c])
		if err != nil {
			return fmt.Errorf("storage: compressing column %q: %w", t.schema.Columns[c].Name, err)
		}
		segments[c] = seg
	}

	rg, err := newRowGroup(segments)
	if err != nil {
		return err
	}
	t.rowGroups = append(t.rowGroups, rg)
	t.staging = nil
	return nil
}
