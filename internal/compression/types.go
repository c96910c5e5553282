// Package compression implements the per-column segment compression engine:
// Uncompressed, Dictionary, and RLE algorithms, each exposing
// (analyze, compress, scan/decompress), plus an automatic selector. All
// three are lossless and deterministic.
package compression

import (
	"fmt"

	"colonnade/internal/types"
)

// Kind is a closed, tagged compression algorithm identifier, dispatched by a
// switch rather than open polymorphism.
type Kind int

const (
	Uncompressed Kind = iota
	Dictionary
	RLE
)

func (k Kind) String() string {
	switch k {
	case Uncompressed:
		return "Uncompressed"
	case Dictionary:
		return "Dictionary"
	case RLE:
		return "RLE"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// onDiskTypeMarker is the stable on-disk logical-type tag written before
// each serialized value (dictionary entries, RLE run values, uncompressed
// values). Types outside this table are
// reserved for future use and must not appear in on-disk segments written
// by this engine. Every serialized segment also stores one segment-level
// marker, and DecodeSegment refuses a segment whose stored type differs
// from the schema's (see serialize.go).
var onDiskTypeMarker = map[types.LogicalType]byte{
	types.Null:      0,
	types.Boolean:   1,
	types.TinyInt:   2,
	types.SmallInt:  3,
	types.Integer:   4,
	types.BigInt:    5,
	types.Float:     6,
	types.Double:    7,
	types.Varchar:   8,
	types.Date:      9,
	types.Time:      10,
	types.Timestamp: 11,
}

var markerToType = func() map[byte]types.LogicalType {
	m := make(map[byte]types.LogicalType, len(onDiskTypeMarker))
	for k, v := range onDiskTypeMarker {
		m[v] = k
	}
	return m
}()

// AnalyzeResult is a cheap, non-mutating size estimate produced by
// Algorithm.Analyze.
type AnalyzeResult struct {
	Kind              Kind
	OriginalSize      int
	EstimatedSize     int
	CompressionRatio  float64
}

// DictionaryMetadata accompanies a Dictionary-compressed segment.
type DictionaryMetadata struct {
	IndexWidth int // 1, 2, or 4 bytes
	Dict       []types.Value
}

// RLERun is one (value, count) run of an RLE-compressed segment.
type RLERun struct {
	Value types.Value
	Count uint32
}

// RLEMetadata accompanies an RLE-compressed segment.
type RLEMetadata struct {
	RunCount int
}

// CompressedSegment is the immutable output of Algorithm.Compress: a
// compression kind, opaque payload, value count, optional validity bitmap,
// and algorithm-specific metadata.
type CompressedSegment struct {
	Kind       Kind
	LogicalTy  types.LogicalType
	ValueCount int
	Validity   *types.ValidityMask // nil means all-valid

	// Only Kind's fields are populated: DictMeta and Indices for
	// Dictionary, RLEMeta and RLERuns for RLE, Raw for Uncompressed.
	DictMeta *DictionaryMetadata
	RLEMeta  *RLEMetadata
	RLERuns  []RLERun    // RLE payload
	Raw      []types.Value // Uncompressed payload
	Indices  []int        // Dictionary payload: per-position index into DictMeta.Dict
}

// Algorithm is the shared (analyze, compress, scan) contract every
// compression kind implements.
type Algorithm interface {
	Kind() Kind
	Analyze(data []types.Value) (AnalyzeResult, error)
	Compress(data []types.Value, valid *types.ValidityMask) (*CompressedSegment, error)
	Decompress(seg *CompressedSegment) ([]types.Value, error)
	Scan(seg *CompressedSegment, sel *types.SelectionVector) ([]types.Value, error)
}
