package exec

import (
	"context"
	"fmt"

	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// ProjectOperator is a stateless transform that evaluates Expressions
// against each input row, producing an equal-length output chunk with one
// vector per expression.
type ProjectOperator struct {
	child       Operator
	expressions []*plan.Expr
	schema      []types.ColumnSchema
}

// NewProjectOperator wraps child, evaluating exprs into columns named by
// schema (schema and exprs must be the same length).
func NewProjectOperator(child Operator, exprs []*plan.Expr, schema []types.ColumnSchema) *ProjectOperator {
	return &ProjectOperator{child: child, expressions: exprs, schema: schema}
}

func (p *ProjectOperator) OutputSchema() []types.ColumnSchema { return p.schema }

func (p *ProjectOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	chunk, err := p.child.NextChunk(ctx, maxRows)
	if err != nil {
		return nil, err
	}
	if chunk == nil {
		return nil, nil
	}

	ectx := &evalContext{chunks: []*types.DataChunk{chunk}}
	out := types.WithRows(chunk.Len())
	for col, e := range p.expressions {
		vec := types.NewVector(p.schema[col].Type, chunk.Len())
		for row := 0; row < chunk.Len(); row++ {
			v, err := evalRow(ectx, e, row)
			if err != nil {
				return nil, fmt.Errorf("exec: project: %w", err)
			}
			vec.Append(v)
		}
		out.SetVector(col, p.schema[col].Name, vec)
	}
	return out, nil
}

func (p *ProjectOperator) Close() error { return p.child.Close() }
