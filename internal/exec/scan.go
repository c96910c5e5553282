package exec

import (
	"context"

	"colonnade/internal/storage"
	"colonnade/internal/types"
)

// ScanOperator is the engine's only source operator backed by table
// storage: it wraps a storage.ChunkStream and re-exposes it as an
// Operator, forwarding whatever filters/limit the optimizer already
// pushed down.
type ScanOperator struct {
	stream *storage.ChunkStream
	schema []types.ColumnSchema
}

// NewScanOperator opens tbl's scan over the given projected columns,
// pushed filters, and limit (-1 for none).
func NewScanOperator(tbl *storage.Table, projected []int, filters []storage.Filter, limit int) (*ScanOperator, error) {
	stream, err := tbl.Scan(projected, filters, limit)
	if err != nil {
		return nil, err
	}
	return &ScanOperator{stream: stream, schema: tbl.Schema().ChunkSchema(projected)}, nil
}

func (s *ScanOperator) OutputSchema() []types.ColumnSchema { return s.schema }

func (s *ScanOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	return s.stream.Next(ctx, maxRows)
}

func (s *ScanOperator) Close() error { return nil }
