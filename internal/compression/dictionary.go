package compression

import "colonnade/internal/types"

// dictionaryAlgorithm maps values to integer dictionary indices. Best for
// low-cardinality categoricals. Nulls are represented out-of-band via the
// segment's validity mask; the dictionary itself holds only non-null
// values.
type dictionaryAlgorithm struct{}

func (dictionaryAlgorithm) Kind() Kind { return Dictionary }

// selectIndexWidth returns the smallest of {1,2,4} bytes that fits
// dictSize.
func selectIndexWidth(dictSize int) int {
	switch {
	case dictSize < 256:
		return 1
	case dictSize < 65536:
		return 2
	default:
		return 4
	}
}

func buildDictionary(data []types.Value) (dict []types.Value, indexOf map[any]int) {
	indexOf = make(map[any]int)
	for _, v := range data {
		if v.Null {
			continue
		}
		key := v.HashKey()
		if _, ok := indexOf[key]; !ok {
			indexOf[key] = len(dict)
			dict = append(dict, v)
		}
	}
	return dict, indexOf
}

func (d dictionaryAlgorithm) Analyze(data []types.Value) (AnalyzeResult, error) {
	orig, _ := uncompressedAlgorithm{}.Analyze(data)

	dict, _ := buildDictionary(data)
	width := selectIndexWidth(len(dict))

	dictBytes := 4 // dict_size header
	for _, v := range dict {
		dictBytes += 1 + valueByteSize(v) // type marker + payload
	}
	estimated := dictBytes + len(data)*width

	ratio := 1.0
	if estimated > 0 {
		ratio = float64(orig.OriginalSize) / float64(estimated)
	}
	return AnalyzeResult{
		Kind:             Dictionary,
		OriginalSize:     orig.OriginalSize,
		EstimatedSize:    estimated,
		CompressionRatio: ratio,
	}, nil
}

func (d dictionaryAlgorithm) Compress(data []types.Value, valid *types.ValidityMask) (*CompressedSegment, error) {
	ty := types.Null
	for _, v := range data {
		if !v.Null {
			ty = v.Type
			break
		}
	}
	if _, ok := onDiskTypeMarker[ty]; ty != types.Null && !ok {
		return nil, &IncompatibleError{Kind: Dictionary, Reason: "logical type has no on-disk marker: " + ty.String()}
	}

	dict, indexOf := buildDictionary(data)
	indices := make([]int, len(data))
	for i, v := range data {
		if v.Null {
			indices[i] = -1
			continue
		}
		indices[i] = indexOf[v.HashKey()]
	}

	return &CompressedSegment{
		Kind:       Dictionary,
		LogicalTy:  ty,
		ValueCount: len(data),
		Validity:   valid,
		DictMeta:   &DictionaryMetadata{IndexWidth: selectIndexWidth(len(dict)), Dict: dict},
		Indices:    indices,
	}, nil
}

func (d dictionaryAlgorithm) Decompress(seg *CompressedSegment) ([]types.Value, error) {
	if seg.Kind != Dictionary || seg.DictMeta == nil {
		return nil, &InvalidMetadataError{Reason: "segment is not Dictionary"}
	}
	out := make([]types.Value, seg.ValueCount)
	for i := 0; i < seg.ValueCount; i++ {
		if seg.Validity != nil && !seg.Validity.GetBit(i) {
			out[i] = types.NewNull(seg.LogicalTy)
			continue
		}
		idx := seg.Indices[i]
		if idx < 0 || idx >= len(seg.DictMeta.Dict) {
			return nil, &CorruptedDataError{Reason: "dictionary index out of range"}
		}
		out[i] = seg.DictMeta.Dict[idx]
	}
	return out, nil
}

// Scan resolves only the requested positions, performing O(|sel|) random
// dictionary lookups without decoding unselected positions.
func (d dictionaryAlgorithm) Scan(seg *CompressedSegment, sel *types.SelectionVector) ([]types.Value, error) {
	if seg.Kind != Dictionary || seg.DictMeta == nil {
		return nil, &InvalidMetadataError{Reason: "segment is not Dictionary"}
	}
	out := make([]types.Value, sel.Len())
	for i := 0; i < sel.Len(); i++ {
		pos := sel.At(i)
		if pos < 0 || pos >= seg.ValueCount {
			return nil, &CorruptedDataError{Reason: "selection index out of range"}
		}
		if seg.Validity != nil && !seg.Validity.GetBit(pos) {
			out[i] = types.NewNull(seg.LogicalTy)
			continue
		}
		idx := seg.Indices[pos]
		if idx < 0 || idx >= len(seg.DictMeta.Dict) {
			return nil, &CorruptedDataError{Reason: "dictionary index out of range"}
		}
		out[i] = seg.DictMeta.Dict[idx]
	}
	return out, nil
}
