package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/types"
)

func intSchema() Schema {
	return Schema{Columns: []ColumnDef{
		{Name: "id", Type: types.Scalar(types.Integer)},
		{Name: "name", Type: types.Scalar(types.Varchar), Nullable: true},
	}}
}

func TestTableAppendAndScan(t *testing.T) {
	tbl := NewTable(intSchema()).WithRowGroupSize(2)
	err := tbl.AppendRows([]Row{
		{types.NewInteger(1), types.NewVarchar("Alice")},
		{types.NewInteger(2), types.NewVarchar("Bob")},
		{types.NewInteger(3), types.NewVarchar("Charlie")},
	})
	require.NoError(t, err)
	require.Equal(t, 3, tbl.RowCount())

	stream, err := tbl.Scan([]int{0, 1}, nil, -1)
	require.NoError(t, err)

	var ids []int64
	for {
		chunk, err := stream.Next(context.Background(), 1024)
		require.NoError(t, err)
		if chunk == nil {
			break
		}
		for i := 0; i < chunk.Len(); i++ {
			ids = append(ids, chunk.GetVector(0).Get(i).AsInt64())
		}
	}
	require.Equal(t, []int64{1, 2, 3}, ids)
}

func TestTableScanWithPushedFilter(t *testing.T) {
	tbl := NewTable(intSchema())
	require.NoError(t, tbl.AppendRows([]Row{
		{types.NewInteger(1), types.NewVarchar("Alice")},
		{types.NewInteger(2), types.NewVarchar("Bob")},
		{types.NewInteger(3), types.NewVarchar("Charlie")},
	}))

	stream, err := tbl.Scan([]int{1}, []Filter{{Column: 0, Op: Gt, Value: types.NewInteger(1)}}, -1)
	require.NoError(t, err)

	var names []string
	for {
		chunk, err := stream.Next(context.Background(), 1024)
		require.NoError(t, err)
		if chunk == nil {
			break
		}
		for i := 0; i < chunk.Len(); i++ {
			names = append(names, chunk.GetVector(0).Get(i).AsString())
		}
	}
	require.Equal(t, []string{"Bob", "Charlie"}, names)
}

func TestTableScanWithLimit(t *testing.T) {
	tbl := NewTable(intSchema())
	var rows []Row
	for i := 1; i <= 10; i++ {
		rows = append(rows, Row{types.NewInteger(int32(i)), types.NewVarchar("x")})
	}
	require.NoError(t, tbl.AppendRows(rows))

	stream, err := tbl.Scan([]int{0}, nil, 3)
	require.NoError(t, err)

	count := 0
	for {
		chunk, err := stream.Next(context.Background(), 1024)
		require.NoError(t, err)
		if chunk == nil {
			break
		}
		count += chunk.Len()
	}
	require.Equal(t, 3, count)
}
