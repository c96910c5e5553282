package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/plan"
	"colonnade/internal/storage"
	"colonnade/internal/types"
)

func matviewFixture(t *testing.T) (*Catalog, *plan.Node) {
	t.Helper()
	cat := New()
	base := storage.NewTable(storage.Schema{Columns: []storage.ColumnDef{
		{Name: "x", Type: types.Scalar(types.Integer)},
	}})
	require.NoError(t, cat.CreateTable("main", "base", base, false))
	def := plan.Scan("main", "base",
		[]plan.OutputColumn{{Name: "x", Type: types.Scalar(types.Integer)}}, []int{0})
	return cat, def
}

func TestMaterializedViewRegistration(t *testing.T) {
	cat, def := matviewFixture(t)
	backing := storage.NewTable(storage.Schema{Columns: []storage.ColumnDef{
		{Name: "x", Type: types.Scalar(types.Integer)},
	}})

	require.NoError(t, cat.CreateMaterializedView("main", "v", def, backing, false))

	// The backing table resolves under the view's name like any table.
	h, err := cat.Resolve("main", "v")
	require.NoError(t, err)
	require.Same(t, backing, h.Table)

	view, err := cat.MaterializedView("main", "v")
	require.NoError(t, err)
	require.Equal(t, []string{"base"}, view.BaseTables)
	require.False(t, view.Stale)
}

func TestMaterializedViewStalenessAndRefresh(t *testing.T) {
	cat, def := matviewFixture(t)
	backing := storage.NewTable(storage.Schema{Columns: []storage.ColumnDef{
		{Name: "x", Type: types.Scalar(types.Integer)},
	}})
	require.NoError(t, cat.CreateMaterializedView("main", "v", def, backing, false))

	cat.MarkStaleDependents("main", "other")
	view, _ := cat.MaterializedView("main", "v")
	require.False(t, view.Stale, "unrelated table writes do not stale the view")

	cat.MarkStaleDependents("main", "base")
	view, _ = cat.MaterializedView("main", "v")
	require.True(t, view.Stale)

	fresh := storage.NewTable(storage.Schema{Columns: []storage.ColumnDef{
		{Name: "x", Type: types.Scalar(types.Integer)},
	}})
	require.NoError(t, cat.RefreshMaterializedView("main", "v", fresh))
	view, _ = cat.MaterializedView("main", "v")
	require.False(t, view.Stale)

	h, err := cat.Resolve("main", "v")
	require.NoError(t, err)
	require.Same(t, fresh, h.Table)
}

func TestMaterializedViewDrop(t *testing.T) {
	cat, def := matviewFixture(t)
	backing := storage.NewTable(storage.Schema{Columns: []storage.ColumnDef{
		{Name: "x", Type: types.Scalar(types.Integer)},
	}})
	require.NoError(t, cat.CreateMaterializedView("main", "v", def, backing, false))

	require.NoError(t, cat.DropMaterializedView("main", "v", false))
	_, err := cat.MaterializedView("main", "v")
	require.Error(t, err)
	_, err = cat.Resolve("main", "v")
	require.Error(t, err)

	require.Error(t, cat.DropMaterializedView("main", "v", false))
	require.NoError(t, cat.DropMaterializedView("main", "v", true))
}
