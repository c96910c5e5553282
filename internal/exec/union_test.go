package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/types"
)

func TestUnionAllConcatenates(t *testing.T) {
	left := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{1, 2}, []*string{strp("a"), strp("b")})}}
	right := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{2, 3}, []*string{strp("b"), strp("c")})}}

	op := NewUnionOperator(left, right, true)
	ids := drainIDs(t, op)
	require.ElementsMatch(t, []int32{1, 2, 2, 3}, ids)
	require.NoError(t, op.Close())
}

func TestUnionDistinctDeduplicatesWholeRows(t *testing.T) {
	left := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{1, 2}, []*string{strp("a"), strp("b")})}}
	right := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{2, 3}, []*string{strp("b"), strp("c")})}}

	op := NewUnionOperator(left, right, false)
	ids := drainIDs(t, op)
	require.ElementsMatch(t, []int32{1, 2, 3}, ids)
}

func TestUnionDistinctTreatsNullAsEqualToNull(t *testing.T) {
	left := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{1}, []*string{nil})}}
	right := &fakeSource{schema: intVarcharSchema(), chunks: []*types.DataChunk{chunkOf([]int32{1}, []*string{nil})}}

	op := NewUnionOperator(left, right, false)
	var rows int
	for {
		chunk, err := op.NextChunk(context.Background(), types.ChunkCapacity)
		require.NoError(t, err)
		if chunk == nil {
			break
		}
		rows += chunk.Len()
	}
	require.Equal(t, 1, rows)
}
