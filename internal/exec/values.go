package exec

import (
	"context"

	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// ValuesOperator is a source operator emitting a literal set of rows (the
// Values(rows) node), handed out in batches of at most maxRows rows; each
// batch's expressions are evaluated when that batch is requested.
type ValuesOperator struct {
	schema []types.ColumnSchema
	rows   [][]*plan.Expr
	cursor int
}

// NewValuesOperator builds a source operator over literal row expressions.
func NewValuesOperator(schema []types.ColumnSchema, rows [][]*plan.Expr) *ValuesOperator {
	return &ValuesOperator{schema: schema, rows: rows}
}

func (v *ValuesOperator) OutputSchema() []types.ColumnSchema { return v.schema }

func (v *ValuesOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if v.cursor >= len(v.rows) {
		return nil, nil
	}
	end := v.cursor + maxRows
	if end > len(v.rows) {
		end = len(v.rows)
	}
	batch := v.rows[v.cursor:end]
	v.cursor = end

	out := types.WithRows(len(batch))
	ectx := &evalContext{}
	for col := range v.schema {
		vec := types.NewVector(v.schema[col].Type, len(batch))
		for _, row := range batch {
			val, err := evalRow(ectx, row[col], 0)
			if err != nil {
				return nil, err
			}
			vec.Append(val)
		}
		out.SetVector(col, v.schema[col].Name, vec)
	}
	return out, nil
}

func (v *ValuesOperator) Close() error { return nil }
