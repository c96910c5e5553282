package compression

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"colonnade/internal/types"
)

// On-disk segment layout: a little-endian header record
// {kind u8, value_count u32, validity_len u32, payload_len u32,
// metadata_len u32}, followed by validity bytes, payload bytes, and
// metadata bytes. Metadata begins with one segment-level logical-type
// marker byte ahead of the per-kind layout: the segment's stored type
// travels with it, and DecodeSegment refuses a segment whose stored type
// differs from the schema's.
//
// Payloads:
//   - Uncompressed: a stream of (type_marker u8, value_bytes) entries.
//   - Dictionary: per-position indices packed at IndexWidth bytes each;
//     metadata continues {index_width u8, dict_size u32, dict_bytes} with
//     dict entries tag-prefixed by a 1-byte type marker.
//   - RLE: a stream of (type_marker u8, value_bytes, count u32) tuples;
//     metadata continues {run_count u32}. Nulls are in-band (marker 0), so
//     RLE segments write validity_len == 0.

const headerLen = 1 + 4 + 4 + 4 + 4

func markerFor(v types.Value) (byte, error) {
	if v.Null {
		return 0, nil
	}
	m, ok := onDiskTypeMarker[v.Type]
	if !ok {
		return 0, &IncompatibleError{Reason: "logical type has no on-disk marker: " + v.Type.String()}
	}
	return m, nil
}

func encodeValue(buf *bytes.Buffer, v types.Value) error {
	m, err := markerFor(v)
	if err != nil {
		return err
	}
	buf.WriteByte(m)
	if v.Null {
		return nil
	}
	switch v.Type {
	case types.Boolean:
		b := byte(0)
		if v.AsBool() {
			b = 1
		}
		buf.WriteByte(b)
	case types.TinyInt:
		buf.WriteByte(byte(int8(v.AsInt64())))
	case types.SmallInt:
		binary.Write(buf, binary.LittleEndian, int16(v.AsInt64()))
	case types.Integer, types.Date:
		binary.Write(buf, binary.LittleEndian, int32(v.AsInt64()))
	case types.BigInt, types.Time, types.Timestamp:
		binary.Write(buf, binary.LittleEndian, v.AsInt64())
	case types.Float:
		binary.Write(buf, binary.LittleEndian, math.Float32bits(float32(v.AsFloat64())))
	case types.Double:
		binary.Write(buf, binary.LittleEndian, math.Float64bits(v.AsFloat64()))
	case types.Varchar:
		s := v.AsString()
		binary.Write(buf, binary.LittleEndian, uint32(len(s)))
		buf.WriteString(s)
	default:
		return &IncompatibleError{Reason: "logical type has no on-disk encoding: " + v.Type.String()}
	}
	return nil
}

func decodeValue(r *bytes.Reader) (types.Value, error) {
	m, err := r.ReadByte()
	if err != nil {
		return types.Value{}, &CorruptedDataError{Reason: "truncated value: missing type marker"}
	}
	ty, ok := markerToType[m]
	if !ok {
		return types.Value{}, &CorruptedDataError{Reason: fmt.Sprintf("unknown type marker %d", m)}
	}
	if ty == types.Null {
		return types.NewNull(types.Null), nil
	}
	fail := func() (types.Value, error) {
		return types.Value{}, &CorruptedDataError{Reason: "truncated " + ty.String() + " value"}
	}
	switch ty {
	case types.Boolean:
		b, err := r.ReadByte()
		if err != nil {
			return fail()
		}
		return types.NewBoolean(b != 0), nil
	case types.TinyInt:
		b, err := r.ReadByte()
		if err != nil {
			return fail()
		}
		return types.NewTinyInt(int8(b)), nil
	case types.SmallInt:
		var v int16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return fail()
		}
		return types.NewSmallInt(v), nil
	case types.Integer:
		var v int32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return fail()
		}
		return types.NewInteger(v), nil
	case types.Date:
		var v int32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return fail()
		}
		return types.NewDate(v), nil
	case types.BigInt:
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return fail()
		}
		return types.NewBigInt(v), nil
	case types.Time:
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return fail()
		}
		return types.NewTime(v), nil
	case types.Timestamp:
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return fail()
		}
		return types.NewTimestamp(v), nil
	case types.Float:
		var bits uint32
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return fail()
		}
		return types.NewFloat(math.Float32frombits(bits)), nil
	case types.Double:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return fail()
		}
		return types.NewDouble(math.Float64frombits(bits)), nil
	case types.Varchar:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return fail()
		}
		if int(n) > r.Len() {
			return types.Value{}, &CorruptedDataError{Reason: "varchar length exceeds remaining payload"}
		}
		b := make([]byte, n)
		if _, err := r.Read(b); err != nil && n > 0 {
			return fail()
		}
		return types.NewVarchar(string(b)), nil
	default:
		return types.Value{}, &CorruptedDataError{Reason: "type marker not decodable: " + ty.String()}
	}
}

// EncodeSegment serializes seg into the on-disk layout above.
func EncodeSegment(seg *CompressedSegment) ([]byte, error) {
	segMarker := byte(0)
	if seg.LogicalTy != types.Null {
		m, ok := onDiskTypeMarker[seg.LogicalTy]
		if !ok {
			return nil, &IncompatibleError{Kind: seg.Kind, Reason: "logical type has no on-disk marker: " + seg.LogicalTy.String()}
		}
		segMarker = m
	}

	var validity []byte
	var payload, metadata bytes.Buffer
	metadata.WriteByte(segMarker)

	switch seg.Kind {
	case Uncompressed:
		if seg.Validity != nil && !seg.Validity.AllValid() {
			validity = seg.Validity.Bytes()
		}
		for _, v := range seg.Raw {
			if err := encodeValue(&payload, v); err != nil {
				return nil, err
			}
		}

	case Dictionary:
		if seg.Validity != nil && !seg.Validity.AllValid() {
			validity = seg.Validity.Bytes()
		}
		width := seg.DictMeta.IndexWidth
		metadata.WriteByte(byte(width))
		binary.Write(&metadata, binary.LittleEndian, uint32(len(seg.DictMeta.Dict)))
		for _, v := range seg.DictMeta.Dict {
			if err := encodeValue(&metadata, v); err != nil {
				return nil, err
			}
		}
		for _, idx := range seg.Indices {
			u := uint32(0)
			if idx >= 0 {
				u = uint32(idx)
			}
			switch width {
			case 1:
				payload.WriteByte(byte(u))
			case 2:
				binary.Write(&payload, binary.LittleEndian, uint16(u))
			default:
				binary.Write(&payload, binary.LittleEndian, u)
			}
		}

	case RLE:
		binary.Write(&metadata, binary.LittleEndian, uint32(seg.RLEMeta.RunCount))
		for _, run := range seg.RLERuns {
			if err := encodeValue(&payload, run.Value); err != nil {
				return nil, err
			}
			binary.Write(&payload, binary.LittleEndian, run.Count)
		}

	default:
		return nil, &InvalidMetadataError{Reason: fmt.Sprintf("unknown compression kind %d", seg.Kind)}
	}

	out := bytes.NewBuffer(make([]byte, 0, headerLen+len(validity)+payload.Len()+metadata.Len()))
	out.WriteByte(byte(seg.Kind))
	binary.Write(out, binary.LittleEndian, uint32(seg.ValueCount))
	binary.Write(out, binary.LittleEndian, uint32(len(validity)))
	binary.Write(out, binary.LittleEndian, uint32(payload.Len()))
	binary.Write(out, binary.LittleEndian, uint32(metadata.Len()))
	out.Write(validity)
	out.Write(payload.Bytes())
	out.Write(metadata.Bytes())
	return out.Bytes(), nil
}

// DecodeSegment parses the on-disk layout back into a CompressedSegment.
// expect is the schema's logical type for the column this segment belongs
// to; a segment whose stored type differs is refused with
// InvalidMetadata. Pass types.Invalid to skip the check.
func DecodeSegment(data []byte, expect types.LogicalType) (*CompressedSegment, error) {
	if len(data) < headerLen {
		return nil, &InvalidMetadataError{Reason: "segment shorter than header"}
	}
	kind := Kind(data[0])
	valueCount := int(binary.LittleEndian.Uint32(data[1:5]))
	validityLen := int(binary.LittleEndian.Uint32(data[5:9]))
	payloadLen := int(binary.LittleEndian.Uint32(data[9:13]))
	metadataLen := int(binary.LittleEndian.Uint32(data[13:17]))
	if headerLen+validityLen+payloadLen+metadataLen != len(data) {
		return nil, &InvalidMetadataError{Reason: "section lengths do not sum to segment size"}
	}
	validityBytes := data[headerLen : headerLen+validityLen]
	payload := bytes.NewReader(data[headerLen+validityLen : headerLen+validityLen+payloadLen])
	metadata := bytes.NewReader(data[headerLen+validityLen+payloadLen:])

	segMarker, err := metadata.ReadByte()
	if err != nil {
		return nil, &InvalidMetadataError{Reason: "metadata missing segment type marker"}
	}
	segTy, ok := markerToType[segMarker]
	if !ok {
		return nil, &InvalidMetadataError{Reason: fmt.Sprintf("unknown segment type marker %d", segMarker)}
	}
	if expect != types.Invalid && segTy != types.Null && segTy != expect {
		return nil, &InvalidMetadataError{
			Reason: fmt.Sprintf("segment stores %s but schema declares %s", segTy, expect),
		}
	}

	seg := &CompressedSegment{Kind: kind, LogicalTy: segTy, ValueCount: valueCount}
	if validityLen > 0 {
		seg.Validity = types.ValidityMaskFromBytes(valueCount, validityBytes)
	}

	switch kind {
	case Uncompressed:
		seg.Raw = make([]types.Value, 0, valueCount)
		for i := 0; i < valueCount; i++ {
			v, err := decodeValue(payload)
			if err != nil {
				return nil, err
			}
			if v.Null {
				v = types.NewNull(segTy)
			}
			seg.Raw = append(seg.Raw, v)
		}

	case Dictionary:
		widthByte, err := metadata.ReadByte()
		if err != nil {
			return nil, &InvalidMetadataError{Reason: "dictionary metadata missing index width"}
		}
		width := int(widthByte)
		if width != 1 && width != 2 && width != 4 {
			return nil, &InvalidMetadataError{Reason: fmt.Sprintf("dictionary index width %d not in {1,2,4}", width)}
		}
		var dictSize uint32
		if err := binary.Read(metadata, binary.LittleEndian, &dictSize); err != nil {
			return nil, &InvalidMetadataError{Reason: "dictionary metadata missing dict size"}
		}
		dict := make([]types.Value, 0, dictSize)
		for i := uint32(0); i < dictSize; i++ {
			v, err := decodeValue(metadata)
			if err != nil {
				return nil, err
			}
			dict = append(dict, v)
		}
		seg.DictMeta = &DictionaryMetadata{IndexWidth: width, Dict: dict}
		seg.Indices = make([]int, valueCount)
		for i := 0; i < valueCount; i++ {
			var idx int
			switch width {
			case 1:
				b, err := payload.ReadByte()
				if err != nil {
					return nil, &CorruptedDataError{Reason: "truncated dictionary indices"}
				}
				idx = int(b)
			case 2:
				var v uint16
				if err := binary.Read(payload, binary.LittleEndian, &v); err != nil {
					return nil, &CorruptedDataError{Reason: "truncated dictionary indices"}
				}
				idx = int(v)
			default:
				var v uint32
				if err := binary.Read(payload, binary.LittleEndian, &v); err != nil {
					return nil, &CorruptedDataError{Reason: "truncated dictionary indices"}
				}
				idx = int(v)
			}
			if seg.Validity != nil && !seg.Validity.GetBit(i) {
				idx = -1
			}
			seg.Indices[i] = idx
		}

	case RLE:
		var runCount uint32
		if err := binary.Read(metadata, binary.LittleEndian, &runCount); err != nil {
			return nil, &InvalidMetadataError{Reason: "RLE metadata missing run count"}
		}
		seg.RLEMeta = &RLEMetadata{RunCount: int(runCount)}
		total := 0
		seg.RLERuns = make([]RLERun, 0, runCount)
		for i := uint32(0); i < runCount; i++ {
			v, err := decodeValue(payload)
			if err != nil {
				return nil, err
			}
			if v.Null {
				v = types.NewNull(segTy)
			}
			var count uint32
			if err := binary.Read(payload, binary.LittleEndian, &count); err != nil {
				return nil, &CorruptedDataError{Reason: "truncated RLE run count"}
			}
			seg.RLERuns = append(seg.RLERuns, RLERun{Value: v, Count: count})
			total += int(count)
		}
		if total != valueCount {
			return nil, &CorruptedDataError{Reason: "run counts do not sum to value count"}
		}

	default:
		return nil, &InvalidMetadataError{Reason: fmt.Sprintf("unknown compression kind %d", kind)}
	}
	return seg, nil
}
