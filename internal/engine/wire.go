package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"colonnade/internal/types"
)

// Wire chunk format: a DataChunk crosses the engine boundary as (len, [(name, logical_type, validity_bits, typed_bytes) for
// each column]). Fixed-width types are little-endian native width;
// validity is a little-endian bit-packed mask of exactly ceil(len/8)
// bytes. Variable-width columns carry a u32 length prefix per value.

// WireColumn is one column of a chunk in boundary form.
type WireColumn struct {
	Name       string
	Type       types.LogicalType
	Validity   []byte
	TypedBytes []byte
}

// WireChunk is a DataChunk in boundary form.
type WireChunk struct {
	Len     int
	Columns []WireColumn
}

// EncodeChunk converts a DataChunk to its boundary form.
func EncodeChunk(c *types.DataChunk) (*WireChunk, error) {
	out := &WireChunk{Len: c.Len()}
	for col := 0; col < c.ColumnCount(); col++ {
		vec := c.GetVector(col)
		validity := make([]byte, (c.Len()+7)/8)
		var payload bytes.Buffer
		for i := 0; i < c.Len(); i++ {
			v := vec.Get(i)
			if !v.Null {
				validity[i/8] |= 1 << uint(i%8)
			}
			if err := writeWireValue(&payload, vec.Type().Kind, v); err != nil {
				return nil, fmt.Errorf("engine: encoding column %q: %w", c.ColumnName(col), err)
			}
		}
		out.Columns = append(out.Columns, WireColumn{
			Name:       c.ColumnName(col),
			Type:       vec.Type().Kind,
			Validity:   validity,
			TypedBytes: payload.Bytes(),
		})
	}
	return out, nil
}

func writeWireValue(buf *bytes.Buffer, kind types.LogicalType, v types.Value) error {
	// Null slots still occupy their native width so positions stay
	// addressable by offset; the validity mask is the source of truth.
	switch kind {
	case types.Boolean, types.TinyInt:
		b := byte(0)
		if !v.Null && kind == types.Boolean && v.AsBool() {
			b = 1
		} else if !v.Null && kind == types.TinyInt {
			b = byte(int8(v.AsInt64()))
		}
		buf.WriteByte(b)
	case types.SmallInt:
		var x int16
		if !v.Null {
			x = int16(v.AsInt64())
		}
		binary.Write(buf, binary.LittleEndian, x)
	case types.Integer, types.Date:
		var x int32
		if !v.Null {
			x = int32(v.AsInt64())
		}
		binary.Write(buf, binary.LittleEndian, x)
	case types.BigInt, types.Time, types.Timestamp:
		var x int64
		if !v.Null {
			x = v.AsInt64()
		}
		binary.Write(buf, binary.LittleEndian, x)
	case types.Float:
		var bits uint32
		if !v.Null {
			bits = math.Float32bits(float32(v.AsFloat64()))
		}
		binary.Write(buf, binary.LittleEndian, bits)
	case types.Double:
		var bits uint64
		if !v.Null {
			bits = math.Float64bits(v.AsFloat64())
		}
		binary.Write(buf, binary.LittleEndian, bits)
	case types.Varchar, types.Char, types.Text, types.Json, types.Blob:
		s := ""
		if !v.Null {
			s = v.AsString()
		}
		binary.Write(buf, binary.LittleEndian, uint32(len(s)))
		buf.WriteString(s)
	default:
		return fmt.Errorf("logical type %s has no wire encoding", kind)
	}
	return nil
}

// DecodeChunk reconstructs a DataChunk from its boundary form.
func DecodeChunk(w *WireChunk) (*types.DataChunk, error) {
	out := types.WithRows(w.Len)
	for col, wc := range w.Columns {
		vec := types.NewVector(types.Scalar(wc.Type), w.Len)
		r := bytes.NewReader(wc.TypedBytes)
		for i := 0; i < w.Len; i++ {
			valid := wc.Validity[i/8]&(1<<uint(i%8)) != 0
			v, err := readWireValue(r, wc.Type)
			if err != nil {
				return nil, fmt.Errorf("engine: decoding column %q row %d: %w", wc.Name, i, err)
			}
			if !valid {
				v = types.NewNull(wc.Type)
			}
			vec.Append(v)
		}
		out.SetVector(col, wc.Name, vec)
	}
	return out, nil
}

func readWireValue(r *bytes.Reader, kind types.LogicalType) (types.Value, error) {
	switch kind {
	case types.Boolean:
		b, err := r.ReadByte()
		if err != nil {
			return types.Value{}, err
		}
		return types.NewBoolean(b != 0), nil
	case types.TinyInt:
		b, err := r.ReadByte()
		if err != nil {
			return types.Value{}, err
		}
		return types.NewTinyInt(int8(b)), nil
	case types.SmallInt:
		var x int16
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return types.Value{}, err
		}
		return types.NewSmallInt(x), nil
	case types.Integer:
		var x int32
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return types.Value{}, err
		}
		return types.NewInteger(x), nil
	case types.Date:
		var x int32
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return types.Value{}, err
		}
		return types.NewDate(x), nil
	case types.BigInt:
		var x int64
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return types.Value{}, err
		}
		return types.NewBigInt(x), nil
	case types.Time:
		var x int64
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return types.Value{}, err
		}
		return types.NewTime(x), nil
	case types.Timestamp:
		var x int64
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return types.Value{}, err
		}
		return types.NewTimestamp(x), nil
	case types.Float:
		var bits uint32
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return types.Value{}, err
		}
		return types.NewFloat(math.Float32frombits(bits)), nil
	case types.Double:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return types.Value{}, err
		}
		return types.NewDouble(math.Float64frombits(bits)), nil
	case types.Varchar, types.Char, types.Text, types.Json, types.Blob:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return types.Value{}, err
		}
		b := make([]byte, n)
		if n > 0 {
			if _, err := r.Read(b); err != nil {
				return types.Value{}, err
			}
		}
		return types.NewStringValue(kind, string(b)), nil
	default:
		return types.Value{}, fmt.Errorf("logical type %s has no wire decoding", kind)
	}
}
