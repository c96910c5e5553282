package ingest

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/storage"
	"colonnade/internal/types"
)

func TestScanHoldersMatchColumnTypes(t *testing.T) {
	cols := []storage.ColumnDef{
		{Name: "id", Type: types.Scalar(types.Integer)},
		{Name: "score", Type: types.Scalar(types.Double)},
		{Name: "name", Type: types.Scalar(types.Varchar)},
		{Name: "active", Type: types.Scalar(types.Boolean)},
	}
	holders := scanHolders(cols)
	require.IsType(t, &sql.NullInt64{}, holders[0])
	require.IsType(t, &sql.NullFloat64{}, holders[1])
	require.IsType(t, &sql.NullString{}, holders[2])
	require.IsType(t, &sql.NullBool{}, holders[3])
}

func TestHolderValueConvertsAndPropagatesNull(t *testing.T) {
	v, err := holderValue(types.Scalar(types.Integer), &sql.NullInt64{Int64: 42, Valid: true})
	require.NoError(t, err)
	require.Equal(t, types.Integer, v.Type)
	require.Equal(t, int64(42), v.AsInt64())

	v, err = holderValue(types.Scalar(types.Integer), &sql.NullInt64{})
	require.NoError(t, err)
	require.True(t, v.IsNull())
	require.Equal(t, types.Integer, v.Type)

	v, err = holderValue(types.Scalar(types.Text), &sql.NullString{String: "abc", Valid: true})
	require.NoError(t, err)
	require.Equal(t, types.Text, v.Type)
	require.Equal(t, "abc", v.AsString())

	_, err = holderValue(types.Scalar(types.Varchar), &sql.NullInt64{Int64: 1, Valid: true})
	require.Error(t, err)
}
