package compression

import "colonnade/internal/types"

// MaxSample bounds how much of a column Selector analyzes before choosing
// an algorithm.
const MaxSample = 10_000

// MinRatio is the minimum compression ratio an algorithm must clear before
// the Selector will use it instead of Uncompressed.
const MinRatio = 1.1

// Selector implements automatic compression algorithm selection: sample up
// to MaxSample values, analyze every enabled algorithm, and pick the
// highest compression ratio, falling back to Uncompressed below MinRatio.
type Selector struct {
	minRatio   float64
	maxSample  int
	algorithms []Algorithm
}

// NewSelector builds a selector with the default settings.
func NewSelector() *Selector {
	return &Selector{
		minRatio:  MinRatio,
		maxSample: MaxSample,
		algorithms: []Algorithm{
			dictionaryAlgorithm{},
			rleAlgorithm{},
			uncompressedAlgorithm{},
		},
	}
}

// WithSettings builds a selector with custom thresholds, used by tests that
// need to exercise selection at smaller scale.
func WithSettings(minRatio float64, maxSample int) *Selector {
	s := NewSelector()
	s.minRatio = minRatio
	s.maxSample = maxSample
	return s
}

func (s *Selector) sample(data []types.Value) []types.Value {
	if len(data) <= s.maxSample {
		return data
	}
	return data[:s.maxSample]
}

// Select returns the compression kind this selector would choose for data,
// without compressing it.
func (s *Selector) Select(data []types.Value) (Kind, error) {
	if len(data) == 0 {
		return Uncompressed, nil
	}
	sample := s.sample(data)

	var best AnalyzeResult
	haveBest := false
	for _, algo := range s.algorithms {
		res, err := algo.Analyze(sample)
		if err != nil {
			var incompat *IncompatibleError
			if asIncompatible(err, &incompat) {
				continue // try the next algorithm
			}
			return Uncompressed, err
		}
		if !haveBest || res.CompressionRatio > best.CompressionRatio {
			best = res
			haveBest = true
		}
	}
	if !haveBest || best.CompressionRatio < s.minRatio {
		return Uncompressed, nil
	}
	return best.Kind, nil
}

func asIncompatible(err error, target **IncompatibleError) bool {
	ic, ok := err.(*IncompatibleError)
	if ok {
		*target = ic
	}
	return ok
}

// algorithmFor returns the concrete Algorithm implementation for kind.
func algorithmFor(kind Kind) Algorithm {
	switch kind {
	case Dictionary:
		return dictionaryAlgorithm{}
	case RLE:
		return rleAlgorithm{}
	default:
		return uncompressedAlgorithm{}
	}
}

// Compress selects the best algorithm for data and compresses the full
// (unsampled) input with it.
func (s *Selector) Compress(data []types.Value, valid *types.ValidityMask) (*CompressedSegment, error) {
	kind, err := s.Select(data)
	if err != nil {
		return nil, err
	}
	seg, err := algorithmFor(kind).Compress(data, valid)
	var incompat *IncompatibleError
	if err != nil && kind != Uncompressed && asIncompatible(err, &incompat) {
		// The chosen algorithm cannot represent this input type;
		// Uncompressed stores any value as is.
		return uncompressedAlgorithm{}.Compress(data, valid)
	}
	return seg, err
}

// Decompress dispatches to the algorithm named by seg.Kind.
func Decompress(seg *CompressedSegment) ([]types.Value, error) {
	return algorithmFor(seg.Kind).Decompress(seg)
}

// Scan dispatches to the algorithm named by seg.Kind.
func Scan(seg *CompressedSegment, sel *types.SelectionVector) ([]types.Value, error) {
	return algorithmFor(seg.Kind).Scan(seg, sel)
}
