package minisql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/catalog"
	"colonnade/internal/engine"
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	require.NoError(t, cat.ApplyDDL("main", "CREATE TABLE t(id INTEGER, name VARCHAR(32))"))
	require.NoError(t, cat.ApplyDDL("main", "CREATE TABLE u(id INTEGER, score DOUBLE)"))
	return cat
}

func TestParseSelectShapesPlan(t *testing.T) {
	p := New(testCatalog(t))
	root, err := p.Parse("main", "SELECT name FROM t WHERE id > 1 ORDER BY id LIMIT 5")
	require.NoError(t, err)

	// Limit -> Project -> Sort -> Filter -> Scan.
	require.Equal(t, plan.NodeLimit, root.Kind)
	require.Equal(t, int64(5), root.LimitCount)
	project := root.Left
	require.Equal(t, plan.NodeProject, project.Kind)
	require.Equal(t, "name", project.Output[0].Name)
	sortNode := project.Left
	require.Equal(t, plan.NodeSort, sortNode.Kind)
	require.True(t, sortNode.SortKeys[0].Ascending)
	filter := sortNode.Left
	require.Equal(t, plan.NodeFilter, filter.Kind)
	require.Equal(t, plan.NodeScan, filter.Left.Kind)
}

func TestParseJoinBindsSidedKeys(t *testing.T) {
	p := New(testCatalog(t))
	root, err := p.Parse("main", "SELECT t.id FROM t JOIN u ON t.id = u.id")
	require.NoError(t, err)

	join := root.Left // under the Project
	require.Equal(t, plan.NodeJoin, join.Kind)
	require.Equal(t, plan.JoinInner, join.JoinKind)
	on := join.JoinOn
	require.Equal(t, plan.CmpEq, on.CompareOp)
	require.Equal(t, 0, on.Left.Ref.ChildIdx)
	require.Equal(t, 1, on.Right.Ref.ChildIdx)
}

func TestParseInsertCoercesLiteralsToColumnTypes(t *testing.T) {
	p := New(testCatalog(t))
	root, err := p.Parse("main", "INSERT INTO t VALUES (1, 'a'), (NULL, NULL)")
	require.NoError(t, err)

	require.Equal(t, plan.NodeInsert, root.Kind)
	values := root.Left
	require.Equal(t, plan.NodeValues, values.Kind)
	require.Len(t, values.Rows, 2)

	// Integer literals arrive from the parser as BigInt and must be
	// narrowed to the column type, or vectors would null them out.
	first := values.Rows[0][0].Value
	require.Equal(t, types.Integer, first.Type)
	require.Equal(t, int64(1), first.AsInt64())

	null := values.Rows[1][0].Value
	require.True(t, null.IsNull())
	require.Equal(t, types.Integer, null.Type)
}

func TestParseErrors(t *testing.T) {
	p := New(testCatalog(t))

	var parseErr *engine.ParseError

	_, err := p.Parse("main", "SELEKT 1")
	require.Error(t, err)
	require.True(t, errors.As(err, &parseErr))

	_, err = p.Parse("main", "SELECT id FROM t RIGHT JOIN u ON t.id = u.id")
	require.Error(t, err)
	require.True(t, errors.As(err, &parseErr))

	_, err = p.Parse("main", "WITH c AS (SELECT id FROM t) SELECT id FROM c")
	require.Error(t, err)
	require.True(t, errors.As(err, &parseErr), "WITH is rejected, not half-built")

	_, err = p.Parse("main", "SELECT nope FROM t")
	require.Error(t, err)
	require.False(t, errors.As(err, &parseErr), "binding failures are not parse errors")

	_, err = p.Parse("main", "SELECT name, COUNT(*) FROM t")
	require.Error(t, err, "non-aggregate field must appear in GROUP BY")
}

func TestParseAggregateQueryShape(t *testing.T) {
	p := New(testCatalog(t))
	root, err := p.Parse("main", "SELECT name, COUNT(*), MIN(id) FROM t GROUP BY name")
	require.NoError(t, err)

	project := root
	require.Equal(t, plan.NodeProject, project.Kind)
	agg := project.Left
	require.Equal(t, plan.NodeAggregate, agg.Kind)
	require.Len(t, agg.GroupKeys, 1)
	require.Len(t, agg.Aggregates, 2)
	require.Equal(t, "COUNT", agg.Aggregates[0].Call.FuncName)
	require.Empty(t, agg.Aggregates[0].Call.Args, "COUNT(*) has no bound arguments")
	require.Equal(t, "MIN", agg.Aggregates[1].Call.FuncName)
	require.Equal(t, types.Integer, agg.Aggregates[1].Call.OutputType.Kind)
}
