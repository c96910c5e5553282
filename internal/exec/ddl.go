package exec

import (
	"context"
	"fmt"

	"colonnade/internal/catalog"
	"colonnade/internal/storage"
	"colonnade/internal/types"
)

// singleRowSchema builds the one-column output schema an Insert/CreateTable/
// DropTable operator reports, rather than propagating its child's schema:
// these are DDL/DML sinks, not relational transforms.
func singleRowSchema(name string, kind types.LogicalType) []types.ColumnSchema {
	return []types.ColumnSchema{{Name: name, Type: types.Scalar(kind)}}
}

// InsertOperator drains child and appends its rows into the resolved
// target table, then reports the number of rows inserted as a single
// output row, in the batched-append style of an apply pipeline.
type InsertOperator struct {
	child  Operator
	target *storage.Table
	schema []types.ColumnSchema

	done     bool
	reported bool
	n        int64
}

// NewInsertOperator builds an Insert sink over child, resolving
// (schema, table) against cat.
func NewInsertOperator(child Operator, cat *catalog.Catalog, schema, table string) (*InsertOperator, error) {
	h, err := cat.Resolve(schema, table)
	if err != nil {
		return nil, fmt.Errorf("exec: insert into %s.%s: %w", schema, table, err)
	}
	return &InsertOperator{child: child, target: h.Table, schema: singleRowSchema("rows_inserted", types.BigInt)}, nil
}

func (op *InsertOperator) OutputSchema() []types.ColumnSchema { return op.schema }

func (op *InsertOperator) run(ctx context.Context) error {
	for {
		chunk, err := op.child.NextChunk(ctx, types.ChunkCapacity)
		if err != nil {
			return err
		}
		if chunk == nil {
			break
		}
		rows := make([]storage.Row, chunk.Len())
		for r := 0; r < chunk.Len(); r++ {
			row := make(storage.Row, chunk.ColumnCount())
			for c := 0; c < chunk.ColumnCount(); c++ {
				row[c] = chunk.GetVector(c).Get(r)
			}
			rows[r] = row
		}
		if err := op.target.AppendRows(rows); err != nil {
			return fmt.Errorf("exec: insert: %w", err)
		}
		op.n += int64(chunk.Len())
	}
	if err := op.target.Flush(); err != nil {
		return fmt.Errorf("exec: insert: flushing: %w", err)
	}
	op.done = true
	return nil
}

func (op *InsertOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if !op.done {
		if err := op.run(ctx); err != nil {
			return nil, err
		}
	}
	if op.reported {
		return nil, nil
	}
	op.reported = true
	out := types.WithRows(1)
	vec := types.NewVector(op.schema[0].Type, 1)
	vec.Append(types.NewBigInt(op.n))
	out.SetVector(0, op.schema[0].Name, vec)
	return out, nil
}

func (op *InsertOperator) Close() error { return op.child.Close() }

// CreateTableOperator executes a CREATE TABLE statement against the
// catalog and reports success as a single boolean row; IfNotExists is
// surfaced as success with no effect.
type CreateTableOperator struct {
	cat         *catalog.Catalog
	schemaName  string
	table       string
	columns     []storage.ColumnDef
	ifNotExists bool

	schema []types.ColumnSchema
	done   bool
}

// NewCreateTableOperator builds a CreateTable DDL operator.
func NewCreateTableOperator(cat *catalog.Catalog, schemaName, table string, cols []storage.ColumnDef, ifNotExists bool) *CreateTableOperator {
	return &CreateTableOperator{
		cat: cat, schemaName: schemaName, table: table, columns: cols, ifNotExists: ifNotExists,
		schema: singleRowSchema("created", types.Boolean),
	}
}

func (op *CreateTableOperator) OutputSchema() []types.ColumnSchema { return op.schema }

func (op *CreateTableOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if op.done {
		return nil, nil
	}
	op.done = true

	tbl := storage.NewTable(storage.Schema{Columns: op.columns})
	if err := op.cat.CreateTable(op.schemaName, op.table, tbl, op.ifNotExists); err != nil {
		return nil, fmt.Errorf("exec: create table %s.%s: %w", op.schemaName, op.table, err)
	}
	out := types.WithRows(1)
	vec := types.NewVector(op.schema[0].Type, 1)
	vec.Append(types.NewBoolean(true))
	out.SetVector(0, op.schema[0].Name, vec)
	return out, nil
}

func (op *CreateTableOperator) Close() error { return nil }

// DropTableOperator executes a DROP TABLE statement against the catalog
// and reports success as a single boolean row.
type DropTableOperator struct {
	cat        *catalog.Catalog
	schemaName string
	table      string
	ifExists   bool

	schema []types.ColumnSchema
	done   bool
}

// NewDropTableOperator builds a DropTable DDL operator.
func NewDropTableOperator(cat *catalog.Catalog, schemaName, table string, ifExists bool) *DropTableOperator {
	return &DropTableOperator{cat: cat, schemaName: schemaName, table: table, ifExists: ifExists, schema: singleRowSchema("dropped", types.Boolean)}
}

func (op *DropTableOperator) OutputSchema() []types.ColumnSchema { return op.schema }

func (op *DropTableOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if op.done {
		return nil, nil
	}
	op.done = true

	if err := op.cat.DropTable(op.schemaName, op.table, op.ifExists); err != nil {
		return nil, fmt.Errorf("exec: drop table %s.%s: %w", op.schemaName, op.table, err)
	}
	out := types.WithRows(1)
	vec := types.NewVector(op.schema[0].Type, 1)
	vec.Append(types.NewBoolean(true))
	out.SetVector(0, op.schema[0].Name, vec)
	return out, nil
}

func (op *DropTableOperator) Close() error { return nil }

// ExplainOperator renders a physical plan tree to text instead of
// executing it.
type ExplainOperator struct {
	text   string
	schema []types.ColumnSchema
	done   bool
}

// NewExplainOperator builds an Explain terminal operator over a
// pre-rendered plan description.
func NewExplainOperator(text string) *ExplainOperator {
	return &ExplainOperator{text: text, schema: singleRowSchema("plan", types.Varchar)}
}

func (op *ExplainOperator) OutputSchema() []types.ColumnSchema { return op.schema }

func (op *ExplainOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if op.done {
		return nil, nil
	}
	op.done = true
	out := types.WithRows(1)
	vec := types.NewVector(op.schema[0].Type, 1)
	vec.Append(types.NewVarchar(op.text))
	out.SetVector(0, op.schema[0].Name, vec)
	return out, nil
}

func (op *ExplainOperator) Close() error { return nil }
