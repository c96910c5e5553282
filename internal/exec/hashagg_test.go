package exec

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/exec/pool"
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

func aggCall(name string, arg *plan.Expr, out types.LogicalType) plan.AggregateExpr {
	var args []*plan.Expr
	if arg != nil {
		args = []*plan.Expr{arg}
	}
	return plan.AggregateExpr{
		Call:  plan.FuncCall(plan.FuncAggregate, name, args, types.Scalar(out), false),
		Alias: name,
	}
}

func groupedChunks() []*types.DataChunk {
	// id is the group key; rows 1,1,2 with name payloads.
	return []*types.DataChunk{
		chunkOf([]int32{1, 1}, []*string{strp("a"), strp("b")}),
		chunkOf([]int32{2}, []*string{strp("c")}),
	}
}

func TestHashAggregateGroupsAndCounts(t *testing.T) {
	src := &fakeSource{schema: intVarcharSchema(), chunks: groupedChunks()}
	schema := []types.ColumnSchema{
		{Name: "id", Type: types.Scalar(types.Integer)},
		{Name: "count", Type: types.Scalar(types.BigInt)},
	}
	op := NewHashAggregateOperator(src, []*plan.Expr{idRef()}, []plan.AggregateExpr{aggCall("COUNT", nil, types.BigInt)}, schema, pool.New(2))

	rows := drainRows(t, op)
	require.Len(t, rows, 2)
	sort.Slice(rows, func(i, j int) bool { return rows[i][0].AsInt64() < rows[j][0].AsInt64() })
	require.Equal(t, int64(1), rows[0][0].AsInt64())
	require.Equal(t, int64(2), rows[0][1].AsInt64())
	require.Equal(t, int64(2), rows[1][0].AsInt64())
	require.Equal(t, int64(1), rows[1][1].AsInt64())
}

func TestHashAggregateNullGroupsTogether(t *testing.T) {
	// GROUP BY on the name column: two NULL names form one group
	// (grouping-key equality treats NULL == NULL).
	src := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{
		chunkOf([]int32{1, 2, 3}, []*string{nil, nil, strp("x")}),
	}}
	nameRef := plan.ColumnRef(0, 1, "name", types.Scalar(types.Varchar))
	schema := []types.ColumnSchema{
		{Name: "name", Type: types.Scalar(types.Varchar)},
		{Name: "count", Type: types.Scalar(types.BigInt)},
	}
	op := NewHashAggregateOperator(src, []*plan.Expr{nameRef}, []plan.AggregateExpr{aggCall("COUNT", nil, types.BigInt)}, schema, pool.New(2))

	rows := drainRows(t, op)
	require.Len(t, rows, 2)
	counts := map[bool]int64{}
	for _, r := range rows {
		counts[r[0].IsNull()] = r[1].AsInt64()
	}
	require.Equal(t, int64(2), counts[true])
	require.Equal(t, int64(1), counts[false])
}

func TestHashAggregateEmptyInputNoGroupByEmitsOneRow(t *testing.T) {
	src := &fakeSource{schema: intVarcharSchema()}
	schema := []types.ColumnSchema{
		{Name: "count", Type: types.Scalar(types.BigInt)},
		{Name: "sum", Type: types.Scalar(types.BigInt)},
	}
	aggs := []plan.AggregateExpr{
		aggCall("COUNT", nil, types.BigInt),
		aggCall("SUM", idRef(), types.BigInt),
	}
	op := NewHashAggregateOperator(src, nil, aggs, schema, pool.New(2))

	rows := drainRows(t, op)
	require.Len(t, rows, 1)
	require.Equal(t, int64(0), rows[0][0].AsInt64())
	require.True(t, rows[0][1].IsNull(), "SUM over empty input is NULL")
}

func TestHashAggregateEmptyInputWithGroupByEmitsNothing(t *testing.T) {
	src := &fakeSource{schema: intVarcharSchema()}
	schema := []types.ColumnSchema{
		{Name: "id", Type: types.Scalar(types.Integer)},
		{Name: "count", Type: types.Scalar(types.BigInt)},
	}
	op := NewHashAggregateOperator(src, []*plan.Expr{idRef()}, []plan.AggregateExpr{aggCall("COUNT", nil, types.BigInt)}, schema, pool.New(2))
	require.Empty(t, drainRows(t, op))
}

func TestTwoPhaseMatchesStreamingOverSortedInput(t *testing.T) {
	// Invariant: the two-phase result equals the single-threaded streaming
	// result over the same (already grouped) input.
	schema := []types.ColumnSchema{
		{Name: "id", Type: types.Scalar(types.Integer)},
		{Name: "count", Type: types.Scalar(types.BigInt)},
	}
	aggs := []plan.AggregateExpr{aggCall("COUNT", nil, types.BigInt)}

	hashed := NewHashAggregateOperator(
		&fakeSource{schema: intVarcharSchema(), chunks: groupedChunks()},
		[]*plan.Expr{idRef()}, aggs, schema, pool.New(4))
	streamed := NewStreamingAggregateOperator(
		&fakeSource{schema: intVarcharSchema(), chunks: groupedChunks()},
		[]*plan.Expr{idRef()}, aggs, schema)

	hr := drainRows(t, hashed)
	sr := drainRows(t, streamed)
	sort.Slice(hr, func(i, j int) bool { return hr[i][0].AsInt64() < hr[j][0].AsInt64() })
	sort.Slice(sr, func(i, j int) bool { return sr[i][0].AsInt64() < sr[j][0].AsInt64() })
	require.Equal(t, len(sr), len(hr))
	for i := range hr {
		require.Equal(t, sr[i][0].AsInt64(), hr[i][0].AsInt64())
		require.Equal(t, sr[i][1].AsInt64(), hr[i][1].AsInt64())
	}
}

func TestStreamingAggregateEmitsOnKeyChange(t *testing.T) {
	src := &fakeSource{schema: intVarcharSchema(), chunks: groupedChunks()}
	schema := []types.ColumnSchema{
		{Name: "id", Type: types.Scalar(types.Integer)},
		{Name: "count", Type: types.Scalar(types.BigInt)},
	}
	op := NewStreamingAggregateOperator(src, []*plan.Expr{idRef()}, []plan.AggregateExpr{aggCall("COUNT", nil, types.BigInt)}, schema)

	rows := drainRows(t, op)
	require.Len(t, rows, 2)
	require.Equal(t, int64(1), rows[0][0].AsInt64())
	require.Equal(t, int64(2), rows[0][1].AsInt64())

	ctx := context.Background()
	extra, err := op.NextChunk(ctx, types.ChunkCapacity)
	require.NoError(t, err)
	require.Nil(t, extra)
}
