package compression

import (
	"sort"

	"colonnade/internal/types"
)

// rleAlgorithm stores (value, count) pairs for consecutive equal values.
// Best for sorted or highly repeated data. RLE encodes Null as an
// ordinary run value (no separate validity mask at the segment level;
// Compress still threads through the caller-supplied validity mask so
// higher layers keep a uniform CompressedSegment shape, but run
// coalescing itself treats Null as just another comparable value). Runs
// coalesce consecutive equal values including Null == Null, and all NaN
// values are treated as equal for run coalescing, which types.Value.Equal
// already implements.
type rleAlgorithm struct{}

func (rleAlgorithm) Kind() Kind { return RLE }

func runsEqual(a, b types.Value) bool {
	if a.Null != b.Null {
		return false
	}
	if a.Null {
		return true
	}
	return a.Equal(b)
}

func coalesceRuns(data []types.Value) []RLERun {
	var runs []RLERun
	for _, v := range data {
		if len(runs) > 0 && runsEqual(runs[len(runs)-1].Value, v) {
			runs[len(runs)-1].Count++
			continue
		}
		runs = append(runs, RLERun{Value: v, Count: 1})
	}
	return runs
}

func (rleAlgorithm) Analyze(data []types.Value) (AnalyzeResult, error) {
	orig, _ := uncompressedAlgorithm{}.Analyze(data)

	runs := coalesceRuns(data)
	estimated := 4 // run_count header
	for _, r := range runs {
		estimated += 1 + valueByteSize(r.Value) + 4 // type marker + value + count
	}
	ratio := 1.0
	if estimated > 0 {
		ratio = float64(orig.OriginalSize) / float64(estimated)
	}
	return AnalyzeResult{
		Kind:             RLE,
		OriginalSize:     orig.OriginalSize,
		EstimatedSize:    estimated,
		CompressionRatio: ratio,
	}, nil
}

func (rleAlgorithm) Compress(data []types.Value, valid *types.ValidityMask) (*CompressedSegment, error) {
	ty := types.Null
	for _, v := range data {
		if !v.Null {
			ty = v.Type
			break
		}
	}
	runs := coalesceRuns(data)
	return &CompressedSegment{
		Kind:       RLE,
		LogicalTy:  ty,
		ValueCount: len(data),
		Validity:   valid,
		RLEMeta:    &RLEMetadata{RunCount: len(runs)},
		RLERuns:    runs,
	}, nil
}

func (rleAlgorithm) Decompress(seg *CompressedSegment) ([]types.Value, error) {
	if seg.Kind != RLE {
		return nil, &InvalidMetadataError{Reason: "segment is not RLE"}
	}
	out := make([]types.Value, 0, seg.ValueCount)
	for _, r := range seg.RLERuns {
		for i := uint32(0); i < r.Count; i++ {
			out = append(out, r.Value)
		}
	}
	if len(out) != seg.ValueCount {
		return nil, &CorruptedDataError{Reason: "run counts do not sum to value count"}
	}
	return out, nil
}

// cumulativeEnds returns, for each run, the exclusive end offset of that
// run in the logical value stream, a monotonically increasing array
// searched by Scan to resolve a position to its run in O(log R).
func cumulativeEnds(runs []RLERun) []int {
	ends := make([]int, len(runs))
	total := 0
	for i, r := range runs {
		total += int(r.Count)
		ends[i] = total
	}
	return ends
}

// Scan resolves each selected position to its run via a cumulative-count
// binary search, O(log R) per selected position over R runs.
func (rleAlgorithm) Scan(seg *CompressedSegment, sel *types.SelectionVector) ([]types.Value, error) {
	if seg.Kind != RLE {
		return nil, &InvalidMetadataError{Reason: "segment is not RLE"}
	}
	ends := cumulativeEnds(seg.RLERuns)
	out := make([]types.Value, sel.Len())
	for i := 0; i < sel.Len(); i++ {
		pos := sel.At(i)
		if pos < 0 || pos >= seg.ValueCount {
			return nil, &CorruptedDataError{Reason: "selection index out of range"}
		}
		runIdx := sort.Search(len(ends), func(j int) bool { return ends[j] > pos })
		if runIdx >= len(seg.RLERuns) {
			return nil, &CorruptedDataError{Reason: "position not covered by any run"}
		}
		out[i] = seg.RLERuns[runIdx].Value
	}
	return out, nil
}
