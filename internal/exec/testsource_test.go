package exec

import (
	"context"

	"colonnade/internal/types"
)

// fakeSource replays a fixed list of chunks, stubbing out a source
// without going through storage.Table.
type fakeSource struct {
	schema []types.ColumnSchema
	chunks []*types.DataChunk
	cursor int
	closed bool
}

func (f *fakeSource) OutputSchema() []types.ColumnSchema { return f.schema }

func (f *fakeSource) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if f.cursor >= len(f.chunks) {
		return nil, nil
	}
	c := f.chunks[f.cursor]
	f.cursor++
	return c, nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func intVarcharSchema() []types.ColumnSchema {
	return []types.ColumnSchema{
		{Name: "id", Type: types.Scalar(types.Integer)},
		{Name: "name", Type: types.Scalar(types.Varchar), Nullable: true},
	}
}

// chunkOf builds a single DataChunk from parallel id/name slices. A nil
// entry in names marks that row's name column NULL.
func chunkOf(ids []int32, names []*string) *types.DataChunk {
	schema := intVarcharSchema()
	out := types.WithRows(len(ids))
	idVec := types.NewVector(schema[0].Type, len(ids))
	for _, v := range ids {
		idVec.Append(types.NewInteger(v))
	}
	nameVec := types.NewVector(schema[1].Type, len(names))
	for _, n := range names {
		if n == nil {
			nameVec.Append(types.NewNull(types.Varchar))
			continue
		}
		nameVec.Append(types.NewVarchar(*n))
	}
	out.SetVector(0, schema[0].Name, idVec)
	out.SetVector(1, schema[1].Name, nameVec)
	return out
}

func strp(s string) *string { return &s }

func drainIDs(t interface {
	Errorf(format string, args ...any)
}, op Operator) []int32 {
	var ids []int32
	for {
		chunk, err := op.NextChunk(context.Background(), types.ChunkCapacity)
		if err != nil {
			t.Errorf("NextChunk: %v", err)
			return ids
		}
		if chunk == nil {
			return ids
		}
		for r := 0; r < chunk.Len(); r++ {
			ids = append(ids, int32(chunk.GetVector(0).Get(r).AsInt64()))
		}
	}
}
