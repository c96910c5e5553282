package types

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Interval is months/days/micros. The compression codec has no on-disk
// type marker for interval-typed values.
type Interval struct {
	Months int32
	Days   int32
	Micros int64
}

// HugeInt is a 128-bit signed integer stored as high/low 64-bit halves, two's
// complement across the pair (Hi holds the sign).
type HugeInt struct {
	Hi int64
	Lo uint64
}

// Value is a single typed datum matching exactly one LogicalType. A Value
// with Null == true is valid for any nullable column; it compares unequal to
// every non-null Value everywhere except the grouping/RLE contexts spelled
// out by logicaltype.go's callers (Null == Null there, by convention of the
// caller, not of Value itself).
type Value struct {
	Type LogicalType
	Null bool

	b   bool
	i   int64 // TinyInt/SmallInt/Integer/BigInt/Date/Time/Timestamp
	f   float64
	s   string // Varchar/Char/Text/Json/Blob(raw bytes stored as string)
	hi  HugeInt
	iv  Interval
	u   uuid.UUID
	lst []Value
	str map[string]Value
}

// NewNull builds the Null value for the given logical type.
func NewNull(t LogicalType) Value { return Value{Type: t, Null: true} }

func NewBoolean(v bool) Value  { return Value{Type: Boolean, b: v} }
func NewTinyInt(v int8) Value  { return Value{Type: TinyInt, i: int64(v)} }
func NewSmallInt(v int16) Value { return Value{Type: SmallInt, i: int64(v)} }
func NewInteger(v int32) Value { return Value{Type: Integer, i: int64(v)} }
func NewBigInt(v int64) Value  { return Value{Type: BigInt, i: v} }
func NewHugeInt(v HugeInt) Value { return Value{Type: HugeInt, hi: v} }
func NewFloat(v float32) Value { return Value{Type: Float, f: float64(v)} }
func NewDouble(v float64) Value { return Value{Type: Double, f: v} }
func NewVarchar(v string) Value { return Value{Type: Varchar, s: v} }
func NewText(v string) Value    { return Value{Type: Text, s: v} }
func NewJSON(v string) Value    { return Value{Type: Json, s: v} }
func NewBlob(v []byte) Value    { return Value{Type: Blob, s: string(v)} }

// NewStringValue builds a value of any string-arena-backed logical type
// (Varchar, Char, Text, Json, Blob), used by decoders that learn the kind
// at runtime.
func NewStringValue(t LogicalType, s string) Value { return Value{Type: t, s: s} }
func NewDate(daysSinceEpoch int32) Value { return Value{Type: Date, i: int64(daysSinceEpoch)} }
func NewTime(microsSinceMidnight int64) Value { return Value{Type: Time, i: microsSinceMidnight} }
func NewTimestamp(microsSinceEpoch int64) Value { return Value{Type: Timestamp, i: microsSinceEpoch} }
func NewInterval(v Interval) Value { return Value{Type: Interval, iv: v} }
func NewUUID(v uuid.UUID) Value { return Value{Type: Uuid, u: v} }
func NewList(vals []Value) Value { return Value{Type: List, lst: vals} }
func NewStruct(fields map[string]Value) Value { return Value{Type: Struct, str: fields} }

func (v Value) AsBool() bool          { return v.b }
func (v Value) AsInt64() int64        { return v.i }
func (v Value) AsFloat64() float64    { return v.f }
func (v Value) AsString() string      { return v.s }
func (v Value) AsBytes() []byte       { return []byte(v.s) }
func (v Value) AsHugeInt() HugeInt    { return v.hi }
func (v Value) AsInterval() Interval  { return v.iv }
func (v Value) AsUUID() uuid.UUID     { return v.u }
func (v Value) AsList() []Value       { return v.lst }
func (v Value) AsStruct() map[string]Value { return v.str }

// IsNull reports whether this Value represents SQL NULL.
func (v Value) IsNull() bool { return v.Null }

// Equal implements three-valued-logic-agnostic raw equality: it never treats
// Null specially. Callers that need SQL predicate semantics (Null never
// equals anything, including Null) or grouping/RLE semantics (Null equals
// Null) must check v.Null/other.Null themselves before calling Equal.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case Boolean:
		return v.b == other.b
	case TinyInt, SmallInt, Integer, BigInt, Date, Time, Timestamp:
		return v.i == other.i
	case Float, Double:
		// NaN compares equal to itself here so RLE run coalescing
		// deduplicates NaN runs.
		if math.IsNaN(v.f) && math.IsNaN(other.f) {
			return true
		}
		return v.f == other.f
	case HugeInt:
		return v.hi == other.hi
	case Interval:
		return v.iv == other.iv
	case Uuid:
		return v.u == other.u
	case Varchar, Char, Text, Json, Blob:
		return v.s == other.s
	case List:
		if len(v.lst) != len(other.lst) {
			return false
		}
		for i := range v.lst {
			if !v.lst[i].Equal(other.lst[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// HashKey returns a value suitable for use as a Go map key, used by hash
// join/aggregate grouping where Null == Null. Distinct types never collide
// because the type tag is folded into the key.
func (v Value) HashKey() any {
	if v.Null {
		return fmt.Sprintf("N:%d", v.Type)
	}
	switch v.Type {
	case Boolean:
		return fmt.Sprintf("%d:%v", v.Type, v.b)
	case TinyInt, SmallInt, Integer, BigInt, Date, Time, Timestamp:
		return fmt.Sprintf("%d:%d", v.Type, v.i)
	case Float, Double:
		if math.IsNaN(v.f) {
			return fmt.Sprintf("%d:NaN", v.Type)
		}
		return fmt.Sprintf("%d:%v", v.Type, v.f)
	case HugeInt:
		return fmt.Sprintf("%d:%d:%d", v.Type, v.hi.Hi, v.hi.Lo)
	case Uuid:
		return fmt.Sprintf("%d:%s", v.Type, v.u.String())
	default:
		return fmt.Sprintf("%d:%s", v.Type, v.s)
	}
}

func (v Value) String() string {
	if v.Null {
		return "NULL"
	}
	switch v.Type {
	case Boolean:
		return fmt.Sprintf("%v", v.b)
	case TinyInt, SmallInt, Integer, BigInt, Date, Time, Timestamp:
		return fmt.Sprintf("%d", v.i)
	case Float, Double:
		return fmt.Sprintf("%v", v.f)
	case Varchar, Char, Text, Json:
		return v.s
	default:
		return fmt.Sprintf("%v", v.s)
	}
}
