package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVectorAppendAndGet(t *testing.T) {
	v := NewVector(Scalar(Integer), 4)
	v.Append(NewInteger(1))
	v.Append(NewNull(Integer))
	v.Append(NewInteger(3))

	require.Equal(t, 3, v.Len())
	require.Equal(t, int64(1), v.Get(0).AsInt64())
	require.True(t, v.Get(1).IsNull())
	require.Equal(t, int64(3), v.Get(2).AsInt64())
}

func TestVectorSetTypeMismatch(t *testing.T) {
	v := NewVector(Scalar(Integer), 1)
	v.Append(NewInteger(0))

	err := v.Set(0, NewVarchar("x"))
	require.Error(t, err)
	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
}

func TestVectorSetOutOfBounds(t *testing.T) {
	v := NewVector(Scalar(Integer), 1)
	err := v.Set(0, NewInteger(1))
	require.Error(t, err)
	var oob *OutOfBoundsError
	require.ErrorAs(t, err, &oob)
}

func TestVectorSelect(t *testing.T) {
	v := FromValues(Scalar(Integer), []Value{NewInteger(10), NewInteger(20), NewInteger(30)})
	sel := SelectionFromIndices([]int{2, 0, 0})
	out := v.Select(sel)

	require.Equal(t, 3, out.Len())
	require.Equal(t, int64(30), out.Get(0).AsInt64())
	require.Equal(t, int64(10), out.Get(1).AsInt64())
	require.Equal(t, int64(10), out.Get(2).AsInt64())
}

func TestValidityMaskRange(t *testing.T) {
	m := NewValidityMask(5)
	m.SetBit(1, false)
	m.SetBit(2, false)

	var runs [][3]int
	m.Range(func(start, end int, valid bool) {
		v := 0
		if valid {
			v = 1
		}
		runs = append(runs, [3]int{start, end, v})
	})
	require.Equal(t, [][3]int{{0, 1, 1}, {1, 3, 0}, {3, 5, 1}}, runs)
}

func TestValidityMaskBytesRoundTrip(t *testing.T) {
	m := NewValidityMask(10)
	m.SetBit(3, false)
	m.SetBit(9, false)

	b := m.Bytes()
	require.Len(t, b, 2)

	back := ValidityMaskFromBytes(10, b)
	for i := 0; i < 10; i++ {
		require.Equal(t, m.GetBit(i), back.GetBit(i), "bit %d", i)
	}
}

func TestDataChunkValidate(t *testing.T) {
	schema := []ColumnSchema{{Name: "a", Type: Scalar(Integer)}, {Name: "b", Type: Scalar(Varchar)}}
	a := FromValues(Scalar(Integer), []Value{NewInteger(1), NewInteger(2)})
	b := FromValues(Scalar(Varchar), []Value{NewVarchar("x"), NewVarchar("y")})

	chunk, err := NewChunk(schema, []*Vector{a, b})
	require.NoError(t, err)
	require.NoError(t, chunk.Validate())
	require.Equal(t, 2, chunk.Len())
}

func TestDataChunkMismatchedLengths(t *testing.T) {
	schema := []ColumnSchema{{Name: "a", Type: Scalar(Integer)}, {Name: "b", Type: Scalar(Varchar)}}
	a := FromValues(Scalar(Integer), []Value{NewInteger(1), NewInteger(2)})
	b := FromValues(Scalar(Varchar), []Value{NewVarchar("x")})

	_, err := NewChunk(schema, []*Vector{a, b})
	require.Error(t, err)
}
