package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/exec/pool"
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

func idRef() *plan.Expr {
	return plan.ColumnRef(0, 0, "id", types.Scalar(types.Integer))
}

func TestSortOrdersAscendingNullsLast(t *testing.T) {
	src := &fakeSource{
		schema: intVarcharSchema(),
		chunks: []*types.DataChunk{
			chunkOf([]int32{3, 1}, []*string{strp("c"), strp("a")}),
			chunkOf([]int32{0, 2}, []*string{nil, strp("b")}),
		},
	}
	nameRef := plan.ColumnRef(0, 1, "name", types.Scalar(types.Varchar))
	op := NewSortOperator(src, []plan.SortKey{{Expr: nameRef, Ascending: true, NullsFirst: false}}, true, pool.New(2))
	ids := drainIDs(t, op)
	require.Equal(t, []int32{1, 2, 3, 0}, ids) // names a, b, c, then the NULL name (id 0)
	require.NoError(t, op.Close())
}

func TestSortZeroKeysIsIdentity(t *testing.T) {
	src := &fakeSource{
		schema: intVarcharSchema(),
		chunks: []*types.DataChunk{chunkOf([]int32{3, 1, 2}, []*string{strp("c"), strp("a"), strp("b")})},
	}
	op := NewSortOperator(src, nil, true, pool.New(2))
	ids := drainIDs(t, op)
	require.Equal(t, []int32{3, 1, 2}, ids)
}

func TestSortNullsFirstDescending(t *testing.T) {
	src := &fakeSource{
		schema: intVarcharSchema(),
		chunks: []*types.DataChunk{chunkOf([]int32{1, 2}, []*string{nil, strp("b")})},
	}
	nameRef := plan.ColumnRef(0, 1, "name", types.Scalar(types.Varchar))
	op := NewSortOperator(src, []plan.SortKey{{Expr: nameRef, Ascending: false, NullsFirst: true}}, true, pool.New(2))
	ids := drainIDs(t, op)
	require.Equal(t, []int32{1, 2}, ids) // NULL name (id 1) sorts first per NullsFirst
}

func TestTopKReturnsSmallestK(t *testing.T) {
	src := &fakeSource{
		schema: intVarcharSchema(),
		chunks: []*types.DataChunk{
			chunkOf([]int32{5, 1, 4}, []*string{strp("e"), strp("a"), strp("d")}),
			chunkOf([]int32{2, 3}, []*string{strp("b"), strp("c")}),
		},
	}
	op := NewTopKOperator(src, []plan.SortKey{{Expr: idRef(), Ascending: true}}, 2, pool.New(2))
	ids := drainIDs(t, op)
	require.ElementsMatch(t, []int32{1, 2}, ids)
	require.Len(t, ids, 2)
}

func TestTopKZeroEmitsNothing(t *testing.T) {
	src := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{1}, []*string{strp("a")})}}
	op := NewTopKOperator(src, []plan.SortKey{{Expr: idRef(), Ascending: true}}, 0, pool.New(2))
	chunk, err := op.NextChunk(context.Background(), types.ChunkCapacity)
	require.NoError(t, err)
	require.Nil(t, chunk)
}
