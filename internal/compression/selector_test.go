package compression

import (
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/types"
)

func TestSelectorChoosesRLEForRepeatedIntegers(t *testing.T) {
	var data []types.Value
	for i := 0; i < 1000; i++ {
		data = append(data, types.NewInteger(42))
	}
	sel := NewSelector()
	kind, err := sel.Select(data)
	require.NoError(t, err)
	require.Equal(t, RLE, kind)

	seg, err := sel.Compress(data, nil)
	require.NoError(t, err)
	require.Equal(t, 1, seg.RLEMeta.RunCount)

	back, err := Decompress(seg)
	require.NoError(t, err)
	require.Len(t, back, 1000)
	for _, v := range back {
		require.True(t, v.Equal(types.NewInteger(42)))
	}
}

func TestSelectorChoosesDictionaryForLowCardinalityStrings(t *testing.T) {
	data := []types.Value{
		types.NewVarchar("apple"), types.NewVarchar("banana"), types.NewVarchar("apple"),
		types.NewVarchar("cherry"), types.NewVarchar("banana"), types.NewVarchar("apple"),
	}
	sel := NewSelector()
	kind, err := sel.Select(data)
	require.NoError(t, err)
	require.Equal(t, Dictionary, kind)

	seg, err := sel.Compress(data, nil)
	require.NoError(t, err)
	require.Equal(t, 3, len(seg.DictMeta.Dict))
	require.Equal(t, 1, seg.DictMeta.IndexWidth)
}

func TestSelectorFallsBackToUncompressed(t *testing.T) {
	data := []types.Value{
		types.NewInteger(1), types.NewInteger(2), types.NewInteger(3),
		types.NewInteger(4), types.NewInteger(5),
	}
	sel := NewSelector()
	kind, err := sel.Select(data)
	require.NoError(t, err)
	require.Equal(t, Uncompressed, kind)
}

func TestCompressionRoundTripAllAlgorithms(t *testing.T) {
	data := []types.Value{
		types.NewInteger(1), types.NewInteger(1), types.NewNull(types.Integer),
		types.NewInteger(2), types.NewInteger(2), types.NewInteger(2),
	}
	valid := types.NewValidityMask(len(data))
	for i, v := range data {
		valid.SetBit(i, !v.Null)
	}

	for _, algo := range []Algorithm{uncompressedAlgorithm{}, dictionaryAlgorithm{}, rleAlgorithm{}} {
		seg, err := algo.Compress(data, valid)
		require.NoError(t, err, algo.Kind())
		back, err := algo.Decompress(seg)
		require.NoError(t, err, algo.Kind())
		require.Len(t, back, len(data))
		for i := range data {
			if data[i].Null {
				require.True(t, back[i].Null, "%s pos %d", algo.Kind(), i)
				continue
			}
			require.True(t, data[i].Equal(back[i]), "%s pos %d", algo.Kind(), i)
		}
	}
}

func TestSelectiveScanAgreesWithDecompress(t *testing.T) {
	data := []types.Value{
		types.NewInteger(10), types.NewInteger(10), types.NewInteger(20),
		types.NewInteger(30), types.NewInteger(30), types.NewInteger(30),
	}
	sel := types.SelectionFromIndices([]int{5, 0, 2})

	for _, algo := range []Algorithm{uncompressedAlgorithm{}, dictionaryAlgorithm{}, rleAlgorithm{}} {
		seg, err := algo.Compress(data, nil)
		require.NoError(t, err)
		got, err := algo.Scan(seg, sel)
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.True(t, got[0].Equal(data[5]))
		require.True(t, got[1].Equal(data[0]))
		require.True(t, got[2].Equal(data[2]))
	}
}

func TestRLECoalescesNaNRuns(t *testing.T) {
	nan := types.NewDouble(nan())
	data := []types.Value{nan, nan, nan, types.NewDouble(1.0)}
	seg, err := rleAlgorithm{}.Compress(data, nil)
	require.NoError(t, err)
	require.Equal(t, 2, seg.RLEMeta.RunCount)
}

func nan() float64 {
	var f float64
	return f / f
}
