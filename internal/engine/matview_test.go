package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/engine"
)

func TestMaterializedViewLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustExec(t, db, "CREATE TABLE sales(region VARCHAR(16), amount INTEGER)")
	mustExec(t, db, "INSERT INTO sales VALUES ('east',10),('east',20),('west',5)")

	require.NoError(t, db.CreateMaterializedView(ctx,
		"sales_by_region",
		"SELECT region, SUM(amount) AS total FROM sales GROUP BY region ORDER BY region"))

	// The view queries like a table, through its backing storage.
	result := mustExec(t, db, "SELECT region, total FROM sales_by_region ORDER BY region")
	require.Equal(t, [][]string{{"east", "30"}, {"west", "5"}}, rowStrings(result))

	view, err := db.MaterializedView("sales_by_region")
	require.NoError(t, err)
	require.False(t, view.Stale)
	require.Equal(t, []string{"sales"}, view.BaseTables)

	// A write to the base table marks the view stale but does not change
	// its contents until a refresh.
	mustExec(t, db, "INSERT INTO sales VALUES ('west',100)")
	view, err = db.MaterializedView("sales_by_region")
	require.NoError(t, err)
	require.True(t, view.Stale)

	result = mustExec(t, db, "SELECT total FROM sales_by_region ORDER BY region")
	require.Equal(t, [][]string{{"30"}, {"5"}}, rowStrings(result))

	require.NoError(t, db.RefreshMaterializedView(ctx, "sales_by_region"))
	view, err = db.MaterializedView("sales_by_region")
	require.NoError(t, err)
	require.False(t, view.Stale)

	result = mustExec(t, db, "SELECT region, total FROM sales_by_region ORDER BY region")
	require.Equal(t, [][]string{{"east", "30"}, {"west", "105"}}, rowStrings(result))

	require.NoError(t, db.DropMaterializedView("sales_by_region", false))
	_, err = db.ExecuteCollect(ctx, "SELECT region FROM sales_by_region")
	require.Error(t, err)
	require.Equal(t, engine.KindCatalog, engine.KindOf(err))
}

func TestMaterializedViewErrors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.CreateMaterializedView(ctx, "v", "SELECT x FROM missing")
	require.Error(t, err)
	require.Equal(t, engine.KindCatalog, engine.KindOf(err))

	err = db.RefreshMaterializedView(ctx, "missing_view")
	require.Error(t, err)
	require.Equal(t, engine.KindCatalog, engine.KindOf(err))

	require.Error(t, db.DropMaterializedView("missing_view", false))
	require.NoError(t, db.DropMaterializedView("missing_view", true))

	// Writes to unrelated tables do not flip staleness.
	mustExec(t, db, "CREATE TABLE a(x INTEGER)")
	mustExec(t, db, "CREATE TABLE b(x INTEGER)")
	mustExec(t, db, "INSERT INTO a VALUES (1)")
	require.NoError(t, db.CreateMaterializedView(ctx, "va", "SELECT x FROM a"))
	mustExec(t, db, "INSERT INTO b VALUES (2)")
	view, err := db.MaterializedView("va")
	require.NoError(t, err)
	require.False(t, view.Stale)
}
