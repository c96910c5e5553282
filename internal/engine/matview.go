package engine

import (
	"context"
	"fmt"

	"colonnade/internal/catalog"
	"colonnade/internal/plan"
	"colonnade/internal/storage"
)

// Materialized views are an engine-level surface rather than SQL DDL: the
// MySQL dialect the DDL path parses has no MATERIALIZED VIEW statement,
// so creation, refresh, and drop are methods on Database. Querying a view
// needs nothing special: its backing table is published under the view's
// name and scans resolve it like any table.

// CreateMaterializedView parses query, materializes its result into a
// backing table, and registers the view under the default schema. The
// stored definition is what Refresh re-runs.
func (db *Database) CreateMaterializedView(ctx context.Context, name, query string) error {
	if db.parser == nil {
		return &EngineError{Kind: KindInvalidArgument, Op: "create materialized view", Err: fmt.Errorf("no SQL parser configured")}
	}
	def, err := db.parser.Parse(DefaultSchema, query)
	if err != nil {
		return Classify("create materialized view", err)
	}
	backing, err := db.materializeDefinition(ctx, def)
	if err != nil {
		return err
	}
	return Classify("create materialized view", db.cat.CreateMaterializedView(DefaultSchema, name, def, backing, false))
}

// RefreshMaterializedView re-runs the stored definition and swaps in the
// fresh result, clearing staleness.
func (db *Database) RefreshMaterializedView(ctx context.Context, name string) error {
	view, err := db.cat.MaterializedView(DefaultSchema, name)
	if err != nil {
		return Classify("refresh materialized view", err)
	}
	backing, err := db.materializeDefinition(ctx, view.Definition)
	if err != nil {
		return err
	}
	return Classify("refresh materialized view", db.cat.RefreshMaterializedView(DefaultSchema, name, backing))
}

// DropMaterializedView removes the view and its backing table.
func (db *Database) DropMaterializedView(name string, ifExists bool) error {
	return Classify("drop materialized view", db.cat.DropMaterializedView(DefaultSchema, name, ifExists))
}

// MaterializedView reports the named view's current state (staleness,
// base tables, definition).
func (db *Database) MaterializedView(name string) (catalog.MaterializedView, error) {
	view, err := db.cat.MaterializedView(DefaultSchema, name)
	if err != nil {
		return catalog.MaterializedView{}, Classify("materialized view", err)
	}
	return view, nil
}

// materializeDefinition runs a copy of def to completion and captures the
// result in a new table. The clone matters: the optimizer mutates plan
// trees in place, and the stored definition must survive for the next
// refresh.
func (db *Database) materializeDefinition(ctx context.Context, def *plan.Node) (*storage.Table, error) {
	stream, err := db.ExecutePlan(ctx, 0, def.Clone())
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	cols := make([]storage.ColumnDef, len(stream.Schema()))
	for i, c := range stream.Schema() {
		cols[i] = storage.ColumnDef{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	tbl := storage.NewTable(storage.Schema{Columns: cols})

	for {
		chunk, err := stream.Next(ctx)
		if err != nil {
			return nil, err
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
		if err := tbl.AppendRows(rows); err != nil {
			return nil, Classify("materialize view", err)
		}
	}
	if err := tbl.Flush(); err != nil {
		return nil, Classify("materialize view", err)
	}
	return tbl, nil
}
