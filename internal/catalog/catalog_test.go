package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/storage"
)

func TestCatalogCreateResolveDrop(t *testing.T) {
	c := New()
	tbl := storage.NewTable(storage.Schema{Columns: []storage.ColumnDef{{Name: "id"}}})

	require.NoError(t, c.CreateTable("main", "t", tbl, false))

	h, err := c.Resolve("main", "t")
	require.NoError(t, err)
	require.Same(t, tbl, h.Table)

	err = c.CreateTable("main", "t", tbl, false)
	require.Error(t, err)
	require.NoError(t, c.CreateTable("main", "t", tbl, true))

	require.NoError(t, c.DropTable("main", "t", false))
	_, err = c.Resolve("main", "t")
	require.Error(t, err)

	require.NoError(t, c.DropTable("main", "t", true))
	err = c.DropTable("main", "t", false)
	require.Error(t, err)
}

func TestCatalogReadersKeepPriorSnapshot(t *testing.T) {
	c := New()
	tbl1 := storage.NewTable(storage.Schema{})
	require.NoError(t, c.CreateTable("main", "t1", tbl1, false))

	h1, err := c.Resolve("main", "t1")
	require.NoError(t, err)

	tbl2 := storage.NewTable(storage.Schema{})
	require.NoError(t, c.CreateTable("main", "t2", tbl2, false))

	// h1 remains valid after a concurrent DDL publishes a new snapshot.
	require.Same(t, tbl1, h1.Table)
	names, err := c.ListTables("main")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"t1", "t2"}, names)
}

func TestApplyDDLCreateAndDropTable(t *testing.T) {
	c := New()
	err := c.ApplyDDL("main", "CREATE TABLE t(id INTEGER, name VARCHAR(255));")
	require.NoError(t, err)

	h, err := c.Resolve("main", "t")
	require.NoError(t, err)
	require.Len(t, h.Table.Schema().Columns, 2)
	require.Equal(t, "id", h.Table.Schema().Columns[0].Name)

	require.NoError(t, c.ApplyDDL("main", "DROP TABLE t;"))
	_, err = c.Resolve("main", "t")
	require.Error(t, err)
}
