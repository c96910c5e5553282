package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/exec/pool"
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

func TestNestedLoopInnerJoinNonEquiPredicate(t *testing.T) {
	outer := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{1, 2, 3}, []*string{strp("a"), strp("b"), strp("c")})}}
	inner := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{2, 4}, []*string{strp("x"), strp("y")})}}

	pred := plan.Comparison(plan.CmpLt, plan.ColumnRef(0, 0, "id", types.Scalar(types.Integer)), plan.ColumnRef(1, 0, "id", types.Scalar(types.Integer)))
	op := NewNestedLoopJoinOperator(outer, inner, pred, plan.JoinInner, pool.New(2))
	require.Equal(t, 4, len(op.OutputSchema())) // outer(id,name) + inner(id,name)

	var outerIDs, innerIDs []int64
	for {
		chunk, err := op.NextChunk(context.Background(), types.ChunkCapacity)
		require.NoError(t, err)
		if chunk == nil {
			break
		}
		for r := 0; r < chunk.Len(); r++ {
			outerIDs = append(outerIDs, chunk.GetVector(0).Get(r).AsInt64())
			innerIDs = append(innerIDs, chunk.GetVector(2).Get(r).AsInt64())
		}
	}
	// outer=1 matches inner 2 and 4; outer=2 matches inner 4; outer=3 matches inner 4.
	require.ElementsMatch(t, []int64{1, 1, 2, 3}, outerIDs)
	require.ElementsMatch(t, []int64{2, 4, 4, 4}, innerIDs)
	require.NoError(t, op.Close())
}

func TestNestedLoopCrossProduct(t *testing.T) {
	outer := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{1, 2}, []*string{strp("a"), strp("b")})}}
	inner := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{9}, []*string{strp("z")})}}

	op := NewNestedLoopJoinOperator(outer, inner, nil, plan.JoinInner, pool.New(2))
	var rows int
	for {
		chunk, err := op.NextChunk(context.Background(), types.ChunkCapacity)
		require.NoError(t, err)
		if chunk == nil {
			break
		}
		rows += chunk.Len()
	}
	require.Equal(t, 2, rows)
}

func TestNestedLoopAntiJoin(t *testing.T) {
	outer := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{1, 2, 3}, []*string{strp("a"), strp("b"), strp("c")})}}
	inner := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{2}, []*string{strp("x")})}}

	pred := plan.Comparison(plan.CmpEq, plan.ColumnRef(0, 0, "id", types.Scalar(types.Integer)), plan.ColumnRef(1, 0, "id", types.Scalar(types.Integer)))
	op := NewNestedLoopJoinOperator(outer, inner, pred, plan.JoinAnti, pool.New(2))
	require.Equal(t, 2, len(op.OutputSchema())) // anti join reports only outer's columns

	ids := drainIDs(t, op)
	require.ElementsMatch(t, []int32{1, 3}, ids)
}
