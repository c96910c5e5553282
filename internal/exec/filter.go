package exec

import (
	"context"
	"fmt"

	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// FilterOperator is a stateless transform (one-in-one-out, row-aligned):
// it re-evaluates Predicate per row of each input chunk and materializes
// only the rows that pass.
type FilterOperator struct {
	child     Operator
	predicate *plan.Expr
}

// NewFilterOperator wraps child with predicate.
func NewFilterOperator(child Operator, predicate *plan.Expr) *FilterOperator {
	return &FilterOperator{child: child, predicate: predicate}
}

func (f *FilterOperator) OutputSchema() []types.ColumnSchema { return f.child.OutputSchema() }

func (f *FilterOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	for {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		chunk, err := f.child.NextChunk(ctx, maxRows)
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			return nil, nil
		}
		var keep []int
		ectx := &evalContext{chunks: []*types.DataChunk{chunk}}
		for i := 0; i < chunk.Len(); i++ {
			v, err := evalRow(ectx, f.predicate, i)
			if err != nil {
				return nil, fmt.Errorf("exec: filter: %w", err)
			}
			if !v.IsNull() && v.AsBool() {
				keep = append(keep, i)
			}
		}
		if len(keep) == 0 {
			continue // this chunk produced nothing; pull the next one
		}
		return chunk.Select(types.SelectionFromIndices(keep)), nil
	}
}

func (f *FilterOperator) Close() error { return f.child.Close() }
