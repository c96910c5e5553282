package compression

import "colonnade/internal/types"

// uncompressedAlgorithm stores values verbatim. It is the universal
// fallback: every input type is compatible, and it is what the selector
// picks when no other algorithm clears MinRatio.
type uncompressedAlgorithm struct{}

func (uncompressedAlgorithm) Kind() Kind { return Uncompressed }

func valueByteSize(v types.Value) int {
	switch v.Type {
	case types.Boolean, types.TinyInt:
		return 1
	case types.SmallInt:
		return 2
	case types.Integer, types.Float, types.Date:
		return 4
	case types.BigInt, types.Double, types.Time, types.Timestamp:
		return 8
	case types.HugeInt, types.Uuid:
		return 16
	case types.Interval:
		return 16
	case types.Varchar, types.Char, types.Text, types.Json, types.Blob:
		return len(v.AsString()) + 4
	default:
		return 8
	}
}

func (uncompressedAlgorithm) Analyze(data []types.Value) (AnalyzeResult, error) {
	size := 0
	for _, v := range data {
		size += valueByteSize(v)
	}
	return AnalyzeResult{
		Kind:             Uncompressed,
		OriginalSize:     size,
		EstimatedSize:    size,
		CompressionRatio: 1.0,
	}, nil
}

func (uncompressedAlgorithm) Compress(data []types.Value, valid *types.ValidityMask) (*CompressedSegment, error) {
	ty := types.Null
	for _, v := range data {
		if !v.Null {
			ty = v.Type
			break
		}
	}
	return &CompressedSegment{
		Kind:       Uncompressed,
		LogicalTy:  ty,
		ValueCount: len(data),
		Validity:   valid,
		Raw:        append([]types.Value(nil), data...),
	}, nil
}

func (uncompressedAlgorithm) Decompress(seg *CompressedSegment) ([]types.Value, error) {
	if seg.Kind != Uncompressed {
		return nil, &InvalidMetadataError{Reason: "segment is not Uncompressed"}
	}
	return append([]types.Value(nil), seg.Raw...), nil
}

func (a uncompressedAlgorithm) Scan(seg *CompressedSegment, sel *types.SelectionVector) ([]types.Value, error) {
	if seg.Kind != Uncompressed {
		return nil, &InvalidMetadataError{Reason: "segment is not Uncompressed"}
	}
	out := make([]types.Value, sel.Len())
	for i := 0; i < sel.Len(); i++ {
		pos := sel.At(i)
		if pos < 0 || pos >= len(seg.Raw) {
			return nil, &CorruptedDataError{Reason: "selection index out of range"}
		}
		out[i] = seg.Raw[pos]
	}
	return out, nil
}
