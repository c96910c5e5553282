package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/exec/pool"
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

func joinSides(buildIDs, probeIDs []int32, buildNames, probeNames []*string) (build, probe *fakeSource) {
	build = &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf(buildIDs, buildNames)}}
	probe = &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf(probeIDs, probeNames)}}
	return build, probe
}

func drainRows(t *testing.T, op Operator) [][]types.Value {
	t.Helper()
	var rows [][]types.Value
	for {
		chunk, err := op.NextChunk(context.Background(), types.ChunkCapacity)
		require.NoError(t, err)
		if chunk == nil {
			return rows
		}
		require.NoError(t, chunk.Validate())
		for r := 0; r < chunk.Len(); r++ {
			row := make([]types.Value, chunk.ColumnCount())
			for c := 0; c < chunk.ColumnCount(); c++ {
				row[c] = chunk.GetVector(c).Get(r)
			}
			rows = append(rows, row)
		}
	}
}

func TestHashJoinInnerMatchesByKey(t *testing.T) {
	build, probe := joinSides(
		[]int32{2, 3, 4}, []int32{1, 2, 3},
		[]*string{strp("b2"), strp("b3"), strp("b4")},
		[]*string{strp("p1"), strp("p2"), strp("p3")},
	)
	op := NewHashJoinOperator(build, probe, idRef(), idRef(), plan.JoinInner, pool.New(2))
	rows := drainRows(t, op)

	// Within one probe chunk, matches appear in probe-row order.
	require.Len(t, rows, 2)
	require.Equal(t, int64(2), rows[0][0].AsInt64())
	require.Equal(t, "p2", rows[0][1].AsString())
	require.Equal(t, "b2", rows[0][3].AsString())
	require.Equal(t, int64(3), rows[1][0].AsInt64())
	require.Equal(t, "b3", rows[1][3].AsString())
	require.NoError(t, op.Close())
}

func TestHashJoinInnerCardinalityWithDuplicateKeys(t *testing.T) {
	build, probe := joinSides(
		[]int32{1, 1, 2}, []int32{1, 1, 2, 3},
		[]*string{strp("a"), strp("b"), strp("c")},
		[]*string{strp("x"), strp("y"), strp("z"), strp("w")},
	)
	op := NewHashJoinOperator(build, probe, idRef(), idRef(), plan.JoinInner, pool.New(2))
	rows := drainRows(t, op)
	// |output| = sum over keys of build-count * probe-count: 2*2 + 1*1.
	require.Len(t, rows, 5)
}

func TestHashJoinLeftEmitsNullBuildSideOnNoMatch(t *testing.T) {
	build, probe := joinSides(
		[]int32{2}, []int32{1, 2},
		[]*string{strp("b2")},
		[]*string{strp("p1"), strp("p2")},
	)
	op := NewHashJoinOperator(build, probe, idRef(), idRef(), plan.JoinLeft, pool.New(2))
	rows := drainRows(t, op)

	require.Len(t, rows, 2)
	byID := map[int64][]types.Value{}
	for _, r := range rows {
		byID[r[0].AsInt64()] = r
	}
	require.True(t, byID[1][2].IsNull(), "unmatched probe row carries null build id")
	require.True(t, byID[1][3].IsNull(), "unmatched probe row carries null build name")
	require.Equal(t, "b2", byID[2][3].AsString())
}

func TestHashJoinNullKeysNeverMatch(t *testing.T) {
	// Both sides hold a row whose join key (the name column) is NULL;
	// SQL join semantics say NULL equals nothing, including NULL.
	build := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{
		chunkOf([]int32{10, 11}, []*string{nil, strp("k")}),
	}}
	probe := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{
		chunkOf([]int32{20, 21}, []*string{nil, strp("k")}),
	}}
	nameRef := plan.ColumnRef(0, 1, "name", types.Scalar(types.Varchar))

	op := NewHashJoinOperator(build, probe, nameRef, nameRef, plan.JoinInner, pool.New(2))
	rows := drainRows(t, op)
	require.Len(t, rows, 1)
	require.Equal(t, int64(21), rows[0][0].AsInt64())

	// Left outer still emits the null-key probe row, with null build columns.
	build2, probe2 := joinSides([]int32{11}, []int32{20}, []*string{strp("k")}, []*string{nil})
	op2 := NewHashJoinOperator(build2, probe2, nameRef, nameRef, plan.JoinLeft, pool.New(2))
	rows2 := drainRows(t, op2)
	require.Len(t, rows2, 1)
	require.True(t, rows2[0][2].IsNull())
}

func TestHashJoinSemiAndAnti(t *testing.T) {
	build, probe := joinSides(
		[]int32{2, 3}, []int32{1, 2, 3, 4},
		[]*string{strp("b"), strp("b")},
		[]*string{strp("p"), strp("p"), strp("p"), strp("p")},
	)
	semi := NewHashJoinOperator(build, probe, idRef(), idRef(), plan.JoinSemi, pool.New(2))
	require.Equal(t, []int32{2, 3}, drainIDs(t, semi))
	require.Len(t, semi.OutputSchema(), 2, "semi output carries probe columns only")

	build2, probe2 := joinSides(
		[]int32{2, 3}, []int32{1, 2, 3, 4},
		[]*string{strp("b"), strp("b")},
		[]*string{strp("p"), strp("p"), strp("p"), strp("p")},
	)
	anti := NewHashJoinOperator(build2, probe2, idRef(), idRef(), plan.JoinAnti, pool.New(2))
	require.Equal(t, []int32{1, 4}, drainIDs(t, anti))
}
