package engine_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"colonnade/internal/engine"
	"colonnade/internal/minisql"
	"colonnade/internal/types"
)

func newTestDB(t *testing.T) *engine.Database {
	t.Helper()
	db := engine.New()
	db.SetParser(minisql.New(db.Catalog()))
	return db
}

func mustExec(t *testing.T, db *engine.Database, sql string) *engine.CollectedResult {
	t.Helper()
	result, err := db.ExecuteCollect(context.Background(), sql)
	require.NoError(t, err, "executing %q", sql)
	return result
}

func rowStrings(result *engine.CollectedResult) [][]string {
	out := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.String()
		}
		out[i] = cells
	}
	return out
}

func TestScenarioCRUDAndProjection(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, "CREATE TABLE t(id INTEGER, name VARCHAR(64))")
	mustExec(t, db, "INSERT INTO t VALUES (1,'Alice'),(2,'Bob'),(3,'Charlie')")

	result := mustExec(t, db, "SELECT name FROM t WHERE id > 1 ORDER BY id")
	require.Equal(t, [][]string{{"Bob"}, {"Charlie"}}, rowStrings(result))
	require.Equal(t, []string{"name"}, result.ColumnNames)
}

func TestScenarioAggregationWithGroupBy(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, "CREATE TABLE s(grp INTEGER, val INTEGER)")
	mustExec(t, db, "INSERT INTO s VALUES (1,10),(1,20),(2,100)")

	result := mustExec(t, db, "SELECT grp, AVG(val) FROM s GROUP BY grp ORDER BY grp")
	require.Len(t, result.Rows, 2)
	require.Equal(t, int64(1), result.Rows[0][0].AsInt64())
	require.InDelta(t, 15.0, result.Rows[0][1].AsFloat64(), 1e-9)
	require.Equal(t, int64(2), result.Rows[1][0].AsInt64())
	require.InDelta(t, 100.0, result.Rows[1][1].AsFloat64(), 1e-9)
}

func createJoinTables(t *testing.T, db *engine.Database) {
	mustExec(t, db, "CREATE TABLE l(k INTEGER, v INTEGER)")
	mustExec(t, db, "CREATE TABLE r(k INTEGER, w INTEGER)")
	mustExec(t, db, "INSERT INTO l VALUES (1,10),(2,20),(3,30)")
	mustExec(t, db, "INSERT INTO r VALUES (2,200),(3,300),(4,400)")
}

func TestScenarioEquiJoin(t *testing.T) {
	db := newTestDB(t)
	createJoinTables(t, db)

	result := mustExec(t, db, "SELECT l.k, l.v, r.w FROM l JOIN r ON l.k = r.k ORDER BY l.k")
	require.Equal(t, [][]string{{"2", "20", "200"}, {"3", "30", "300"}}, rowStrings(result))
}

func TestScenarioLeftOuterJoinWithNoMatch(t *testing.T) {
	db := newTestDB(t)
	createJoinTables(t, db)

	result := mustExec(t, db, "SELECT l.k, r.w FROM l LEFT JOIN r ON l.k = r.k ORDER BY l.k")
	require.Equal(t, [][]string{{"1", "NULL"}, {"2", "200"}, {"3", "300"}}, rowStrings(result))
	require.True(t, result.Rows[0][1].IsNull())
}

func TestScenarioConstantFoldingThroughFilterPushdown(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, "CREATE TABLE n(x INTEGER)")
	mustExec(t, db, "INSERT INTO n VALUES (1),(2),(3),(4),(5),(6),(7),(8)")

	result := mustExec(t, db, "SELECT x FROM n WHERE x < (5 + 3) ORDER BY x")
	require.Equal(t,
		[][]string{{"1"}, {"2"}, {"3"}, {"4"}, {"5"}, {"6"}, {"7"}},
		rowStrings(result))

	// The fold must survive into the scan: EXPLAIN shows no residual
	// Filter operator above the sequential scan.
	explained := mustExec(t, db, "EXPLAIN SELECT x FROM n WHERE x < (5 + 3)")
	require.Len(t, explained.Rows, 1)
	require.NotContains(t, explained.Rows[0][0].AsString(), "Filter")
}

func TestEmptyAggregateBoundaries(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, "CREATE TABLE e(x INTEGER)")

	// No GROUP BY over empty input: exactly one row, COUNT 0, SUM NULL.
	result := mustExec(t, db, "SELECT COUNT(*), SUM(x) FROM e")
	require.Len(t, result.Rows, 1)
	require.Equal(t, int64(0), result.Rows[0][0].AsInt64())
	require.True(t, result.Rows[0][1].IsNull())

	// With GROUP BY over empty input: zero rows.
	result = mustExec(t, db, "SELECT x, COUNT(*) FROM e GROUP BY x")
	require.Empty(t, result.Rows)
}

func TestLimitAndOffset(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, "CREATE TABLE t(id INTEGER, name VARCHAR(16))")
	mustExec(t, db, "INSERT INTO t VALUES (1,'a'),(2,'b'),(3,'c'),(4,'d')")

	result := mustExec(t, db, "SELECT id FROM t ORDER BY id LIMIT 2 OFFSET 1")
	require.Equal(t, [][]string{{"2"}, {"3"}}, rowStrings(result))

	result = mustExec(t, db, "SELECT id FROM t LIMIT 0")
	require.Empty(t, result.Rows)
}

func TestNullPredicateDropsRow(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, "CREATE TABLE t(id INTEGER, name VARCHAR(16))")
	mustExec(t, db, "INSERT INTO t VALUES (1,'a'),(2,NULL)")

	// name = 'a' is UNKNOWN for the NULL row; three-valued logic drops it.
	result := mustExec(t, db, "SELECT id FROM t WHERE name = 'a'")
	require.Equal(t, [][]string{{"1"}}, rowStrings(result))

	result = mustExec(t, db, "SELECT id FROM t WHERE name IS NULL")
	require.Equal(t, [][]string{{"2"}}, rowStrings(result))
}

func TestDivisionByZeroAbortsQuery(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, "CREATE TABLE t(id INTEGER, name VARCHAR(16))")
	mustExec(t, db, "INSERT INTO t VALUES (1,'a')")

	_, err := db.ExecuteCollect(context.Background(), "SELECT id / 0 FROM t")
	require.Error(t, err)
	require.Equal(t, engine.KindDivisionByZero, engine.KindOf(err))
}

func TestCatalogErrorsClassified(t *testing.T) {
	db := newTestDB(t)
	_, err := db.ExecuteCollect(context.Background(), "SELECT x FROM missing")
	require.Error(t, err)
	require.Equal(t, engine.KindCatalog, engine.KindOf(err))

	mustExec(t, db, "CREATE TABLE t(id INTEGER)")
	err = db.ApplyDDL("CREATE TABLE t(id INTEGER)")
	require.Equal(t, engine.KindCatalog, engine.KindOf(err))

	// IF NOT EXISTS / IF EXISTS surface as success with no effect.
	require.NoError(t, db.ApplyDDL("CREATE TABLE IF NOT EXISTS t(id INTEGER)"))
	require.NoError(t, db.ApplyDDL("DROP TABLE IF EXISTS nope"))
}

func TestParseErrorClassified(t *testing.T) {
	db := newTestDB(t)
	_, err := db.ExecuteCollect(context.Background(), "SELEKT 1")
	require.Error(t, err)
	require.Equal(t, engine.KindParse, engine.KindOf(err))
}

func TestCancellationAborts(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, "CREATE TABLE t(id INTEGER)")
	mustExec(t, db, "INSERT INTO t VALUES (1),(2)")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := db.ExecuteCollect(ctx, "SELECT id FROM t")
	require.Error(t, err)
	require.Equal(t, engine.KindAborted, engine.KindOf(err))
}

func TestMetricsAndStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	db := engine.New(engine.WithMetricsRegistry(reg))
	db.SetParser(minisql.New(db.Catalog()))

	mustExec(t, db, "CREATE TABLE t(id INTEGER)")
	mustExec(t, db, "INSERT INTO t VALUES (1),(2),(3)")
	result := mustExec(t, db, "SELECT id FROM t")

	require.Equal(t, int64(3), result.Stats.RowsReturned)
	require.Equal(t, int64(3), result.Stats.RowsScanned)
	require.GreaterOrEqual(t, result.Stats.Elapsed.Nanoseconds(), int64(0))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["colonnade_rows_returned_total"])
	require.True(t, names["colonnade_queries_total"])
}

func TestSelectWithoutFrom(t *testing.T) {
	db := newTestDB(t)
	result := mustExec(t, db, "SELECT 1 + 1")
	require.Len(t, result.Rows, 1)
	require.Equal(t, int64(2), result.Rows[0][0].AsInt64())
}

func TestWireChunkCrossesBoundary(t *testing.T) {
	db := newTestDB(t)
	mustExec(t, db, "CREATE TABLE t(id INTEGER, name VARCHAR(16))")
	mustExec(t, db, "INSERT INTO t VALUES (1,'a'),(2,NULL)")

	stream, err := db.Execute(context.Background(), "SELECT id, name FROM t ORDER BY id", 0)
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, chunk)

	wire, err := engine.EncodeChunk(chunk)
	require.NoError(t, err)
	require.Equal(t, 2, wire.Len)
	require.Len(t, wire.Columns[0].Validity, 1, "validity is exactly ceil(len/8) bytes")

	back, err := engine.DecodeChunk(wire)
	require.NoError(t, err)
	require.Equal(t, chunk.Len(), back.Len())
	require.Equal(t, int64(1), back.GetVector(0).Get(0).AsInt64())
	require.True(t, back.GetVector(1).Get(1).IsNull())
	require.Equal(t, types.Varchar, back.GetVector(1).Type().Kind)
}
