package compression

import (
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/types"
)

func requireValuesEqual(t *testing.T, want, got []types.Value) {
	t.Helper()
	require.Equal(t, len(want), len(got))
	for i := range want {
		require.Equal(t, want[i].Null, got[i].Null, "row %d null flag", i)
		if !want[i].Null {
			require.True(t, want[i].Equal(got[i]), "row %d: want %s, got %s", i, want[i], got[i])
		}
	}
}

func TestEncodeDecodeUncompressedRoundTrip(t *testing.T) {
	data := []types.Value{
		types.NewInteger(1),
		types.NewNull(types.Integer),
		types.NewInteger(-7),
		types.NewInteger(42),
	}
	valid := types.NewValidityMask(len(data))
	valid.SetBit(1, false)

	seg, err := uncompressedAlgorithm{}.Compress(data, valid)
	require.NoError(t, err)

	b, err := EncodeSegment(seg)
	require.NoError(t, err)

	decoded, err := DecodeSegment(b, types.Integer)
	require.NoError(t, err)
	require.Equal(t, Uncompressed, decoded.Kind)
	require.Equal(t, len(data), decoded.ValueCount)

	vals, err := Decompress(decoded)
	require.NoError(t, err)
	requireValuesEqual(t, data, vals)
}

func TestEncodeDecodeDictionaryRoundTrip(t *testing.T) {
	data := []types.Value{
		types.NewVarchar("apple"),
		types.NewVarchar("banana"),
		types.NewNull(types.Varchar),
		types.NewVarchar("apple"),
	}
	valid := types.NewValidityMask(len(data))
	valid.SetBit(2, false)

	seg, err := dictionaryAlgorithm{}.Compress(data, valid)
	require.NoError(t, err)
	require.Equal(t, 2, len(seg.DictMeta.Dict))
	require.Equal(t, 1, seg.DictMeta.IndexWidth)

	b, err := EncodeSegment(seg)
	require.NoError(t, err)

	decoded, err := DecodeSegment(b, types.Varchar)
	require.NoError(t, err)
	require.Equal(t, Dictionary, decoded.Kind)
	require.Equal(t, 1, decoded.DictMeta.IndexWidth)

	vals, err := Decompress(decoded)
	require.NoError(t, err)
	requireValuesEqual(t, data, vals)
}

func TestEncodeDecodeRLERoundTrip(t *testing.T) {
	var data []types.Value
	for i := 0; i < 10; i++ {
		data = append(data, types.NewBigInt(5))
	}
	data = append(data, types.NewNull(types.BigInt), types.NewNull(types.BigInt))

	seg, err := rleAlgorithm{}.Compress(data, nil)
	require.NoError(t, err)
	require.Equal(t, 2, seg.RLEMeta.RunCount)

	b, err := EncodeSegment(seg)
	require.NoError(t, err)

	decoded, err := DecodeSegment(b, types.BigInt)
	require.NoError(t, err)
	require.Equal(t, RLE, decoded.Kind)
	require.Equal(t, 2, decoded.RLEMeta.RunCount)

	vals, err := Decompress(decoded)
	require.NoError(t, err)
	requireValuesEqual(t, data, vals)
}

func TestDecodeRefusesTypeMismatch(t *testing.T) {
	seg, err := uncompressedAlgorithm{}.Compress([]types.Value{types.NewInteger(1)}, nil)
	require.NoError(t, err)
	b, err := EncodeSegment(seg)
	require.NoError(t, err)

	_, err = DecodeSegment(b, types.Varchar)
	require.Error(t, err)
	require.IsType(t, &InvalidMetadataError{}, err)
}

func TestDecodeRejectsTruncatedSegment(t *testing.T) {
	seg, err := rleAlgorithm{}.Compress([]types.Value{types.NewInteger(9), types.NewInteger(9)}, nil)
	require.NoError(t, err)
	b, err := EncodeSegment(seg)
	require.NoError(t, err)

	_, err = DecodeSegment(b[:len(b)-3], types.Integer)
	require.Error(t, err)

	_, err = DecodeSegment(b[:4], types.Integer)
	require.IsType(t, &InvalidMetadataError{}, err)
}

func TestSelectiveScanAgreesWithDecodedSegment(t *testing.T) {
	data := []types.Value{
		types.NewVarchar("a"), types.NewVarchar("a"), types.NewVarchar("b"),
		types.NewVarchar("c"), types.NewVarchar("a"),
	}
	seg, err := dictionaryAlgorithm{}.Compress(data, nil)
	require.NoError(t, err)
	b, err := EncodeSegment(seg)
	require.NoError(t, err)
	decoded, err := DecodeSegment(b, types.Varchar)
	require.NoError(t, err)

	sel := types.SelectionFromIndices([]int{4, 0, 2})
	vals, err := Scan(decoded, sel)
	require.NoError(t, err)
	requireValuesEqual(t, []types.Value{types.NewVarchar("a"), types.NewVarchar("a"), types.NewVarchar("b")}, vals)
}
