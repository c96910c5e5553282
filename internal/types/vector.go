package types

import "github.com/google/uuid"

// ChunkCapacity is the upper bound on rows per DataChunk.
const ChunkCapacity = 2048

// Vector is a contiguous sequence of at most ChunkCapacity values of one
// logical type, plus a validity mask. Fixed-width types are backed by a
// dense native-width Go slice; Varchar/Char/Text/Json/Blob are backed by a
// []string arena (Go strings already own their byte backing, which plays
// the role of an offset+bytes arena). Dedup of repeated strings is left to
// the Dictionary compression layer, not performed here.
type Vector struct {
	typ   *TypeInfo
	valid *ValidityMask
	n     int

	boolData []bool
	i64Data  []int64 // TinyInt, SmallInt, Integer, BigInt, Date, Time, Timestamp
	f64Data  []float64
	strData  []string // Varchar, Char, Text, Json, Blob
	hugeData []HugeInt
	ivData   []Interval
	uuidData []uuid.UUID
	listData [][]Value
	structData []map[string]Value
}

// NewVector allocates an empty vector of the given logical type and
// capacity hint.
func NewVector(t *TypeInfo, capacity int) *Vector {
	v := &Vector{typ: t, valid: NewValidityMask(0)}
	switch t.Kind {
	case Boolean:
		v.boolData = make([]bool, 0, capacity)
	case TinyInt, SmallInt, Integer, BigInt, Date, Time, Timestamp:
		v.i64Data = make([]int64, 0, capacity)
	case Float, Double:
		v.f64Data = make([]float64, 0, capacity)
	case Varchar, Char, Text, Json, Blob:
		v.strData = make([]string, 0, capacity)
	case HugeInt:
		v.hugeData = make([]HugeInt, 0, capacity)
	case Interval:
		v.ivData = make([]Interval, 0, capacity)
	case Uuid:
		v.uuidData = make([]uuid.UUID, 0, capacity)
	case List:
		v.listData = make([][]Value, 0, capacity)
	case Struct, Map, Union:
		v.structData = make([]map[string]Value, 0, capacity)
	}
	return v
}

// FromValues builds a vector from a slice of homogeneously-typed values.
func FromValues(t *TypeInfo, values []Value) *Vector {
	v := NewVector(t, len(values))
	for _, val := range values {
		v.Append(val)
	}
	return v
}

// Type returns the vector's logical type.
func (v *Vector) Type() *TypeInfo { return v.typ }

// Len returns the number of logical positions in the vector.
func (v *Vector) Len() int { return v.n }

// Validity exposes the vector's validity mask.
func (v *Vector) Validity() *ValidityMask { return v.valid }

// Append adds one value at the end of the vector, growing it by one.
func (v *Vector) Append(val Value) {
	v.n++
	v.valid.Resize(v.n)
	if val.Null {
		v.valid.SetBit(v.n-1, false)
		v.appendZero()
		return
	}
	if val.Type != v.typ.Kind {
		v.valid.SetBit(v.n-1, false)
		v.appendZero()
		return
	}
	switch v.typ.Kind {
	case Boolean:
		v.boolData = append(v.boolData, val.AsBool())
	case TinyInt, SmallInt, Integer, BigInt, Date, Time, Timestamp:
		v.i64Data = append(v.i64Data, val.AsInt64())
	case Float, Double:
		v.f64Data = append(v.f64Data, val.AsFloat64())
	case Varchar, Char, Text, Json, Blob:
		v.strData = append(v.strData, val.AsString())
	case HugeInt:
		v.hugeData = append(v.hugeData, val.AsHugeInt())
	case Interval:
		v.ivData = append(v.ivData, val.AsInterval())
	case Uuid:
		v.uuidData = append(v.uuidData, val.AsUUID())
	case List:
		v.listData = append(v.listData, val.AsList())
	case Struct, Map, Union:
		v.structData = append(v.structData, val.AsStruct())
	}
}

func (v *Vector) appendZero() {
	switch v.typ.Kind {
	case Boolean:
		v.boolData = append(v.boolData, false)
	case TinyInt, SmallInt, Integer, BigInt, Date, Time, Timestamp:
		v.i64Data = append(v.i64Data, 0)
	case Float, Double:
		v.f64Data = append(v.f64Data, 0)
	case Varchar, Char, Text, Json, Blob:
		v.strData = append(v.strData, "")
	case HugeInt:
		v.hugeData = append(v.hugeData, HugeInt{})
	case Interval:
		v.ivData = append(v.ivData, Interval{})
	case Uuid:
		v.uuidData = append(v.uuidData, uuid.UUID{})
	case List:
		v.listData = append(v.listData, nil)
	case Struct, Map, Union:
		v.structData = append(v.structData, nil)
	}
}

// Set overwrites position i with val. Returns TypeMismatchError if val's
// type does not match the vector's, or OutOfBoundsError if i >= Len().
func (v *Vector) Set(i int, val Value) error {
	if i >= v.n {
		return &OutOfBoundsError{Index: i, Len: v.n}
	}
	if !val.Null && val.Type != v.typ.Kind {
		return &TypeMismatchError{Expected: v.typ.Kind, Got: val.Type}
	}
	if val.Null {
		v.valid.SetBit(i, false)
		return nil
	}
	v.valid.SetBit(i, true)
	switch v.typ.Kind {
	case Boolean:
		v.boolData[i] = val.AsBool()
	case TinyInt, SmallInt, Integer, BigInt, Date, Time, Timestamp:
		v.i64Data[i] = val.AsInt64()
	case Float, Double:
		v.f64Data[i] = val.AsFloat64()
	case Varchar, Char, Text, Json, Blob:
		v.strData[i] = val.AsString()
	case HugeInt:
		v.hugeData[i] = val.AsHugeInt()
	case Interval:
		v.ivData[i] = val.AsInterval()
	case Uuid:
		v.uuidData[i] = val.AsUUID()
	case List:
		v.listData[i] = val.AsList()
	case Struct, Map, Union:
		v.structData[i] = val.AsStruct()
	}
	return nil
}

// Get reconstructs the Value at position i. Out-of-bounds access is fatal
// to the calling operator, so Get is only ever called after bounds have
// been validated by the caller (Scan, Filter, …); defensive callers should
// compare i against Len() first.
func (v *Vector) Get(i int) Value {
	if i >= v.n {
		panic(&OutOfBoundsError{Index: i, Len: v.n})
	}
	if !v.valid.GetBit(i) {
		return NewNull(v.typ.Kind)
	}
	switch v.typ.Kind {
	case Boolean:
		return NewBoolean(v.boolData[i])
	case TinyInt:
		return Value{Type: TinyInt, i: v.i64Data[i]}
	case SmallInt:
		return Value{Type: SmallInt, i: v.i64Data[i]}
	case Integer:
		return Value{Type: Integer, i: v.i64Data[i]}
	case BigInt:
		return Value{Type: BigInt, i: v.i64Data[i]}
	case Date:
		return Value{Type: Date, i: v.i64Data[i]}
	case Time:
		return Value{Type: Time, i: v.i64Data[i]}
	case Timestamp:
		return Value{Type: Timestamp, i: v.i64Data[i]}
	case Float:
		return Value{Type: Float, f: v.f64Data[i]}
	case Double:
		return Value{Type: Double, f: v.f64Data[i]}
	case Varchar, Char, Text, Json, Blob:
		return Value{Type: v.typ.Kind, s: v.strData[i]}
	case HugeInt:
		return Value{Type: HugeInt, hi: v.hugeData[i]}
	case Interval:
		return Value{Type: Interval, iv: v.ivData[i]}
	case Uuid:
		return Value{Type: Uuid, u: v.uuidData[i]}
	case List:
		return Value{Type: List, lst: v.listData[i]}
	case Struct, Map, Union:
		return Value{Type: v.typ.Kind, str: v.structData[i]}
	default:
		return NewNull(v.typ.Kind)
	}
}

// Resize grows or shrinks the vector to length n. Growing appends
// null/zero positions; shrinking truncates.
func (v *Vector) Resize(n int) {
	if n <= v.n {
		v.Truncate(n)
		return
	}
	for v.n < n {
		v.Append(NewNull(v.typ.Kind))
	}
}

// Truncate shrinks the vector to the first n positions.
func (v *Vector) Truncate(n int) {
	v.n = n
	v.valid.Resize(n)
	switch v.typ.Kind {
	case Boolean:
		v.boolData = v.boolData[:n]
	case TinyInt, SmallInt, Integer, BigInt, Date, Time, Timestamp:
		v.i64Data = v.i64Data[:n]
	case Float, Double:
		v.f64Data = v.f64Data[:n]
	case Varchar, Char, Text, Json, Blob:
		v.strData = v.strData[:n]
	case HugeInt:
		v.hugeData = v.hugeData[:n]
	case Interval:
		v.ivData = v.ivData[:n]
	case Uuid:
		v.uuidData = v.uuidData[:n]
	case List:
		v.listData = v.listData[:n]
	case Struct, Map, Union:
		v.structData = v.structData[:n]
	}
}

// IterateValid calls fn for every position, reporting its value and
// validity. Iteration stops early if fn returns false.
func (v *Vector) IterateValid(fn func(i int, val Value, valid bool) bool) {
	for i := 0; i < v.n; i++ {
		valid := v.valid.GetBit(i)
		if !fn(i, v.Get(i), valid) {
			return
		}
	}
}

// Select materializes a new vector containing only the positions named by
// sel, in sel's order (repeats and out-of-source-order indices allowed).
func (v *Vector) Select(sel *SelectionVector) *Vector {
	out := NewVector(v.typ, sel.Len())
	for i := 0; i < sel.Len(); i++ {
		out.Append(v.Get(sel.At(i)))
	}
	return out
}

// Clone returns a deep-enough independent copy of the vector (validity mask
// is fully copied; backing slices are copied by value).
func (v *Vector) Clone() *Vector {
	out := &Vector{typ: v.typ, valid: v.valid.Clone(), n: v.n}
	out.boolData = append([]bool(nil), v.boolData...)
	out.i64Data = append([]int64(nil), v.i64Data...)
	out.f64Data = append([]float64(nil), v.f64Data...)
	out.strData = append([]string(nil), v.strData...)
	out.hugeData = append([]HugeInt(nil), v.hugeData...)
	out.ivData = append([]Interval(nil), v.ivData...)
	out.uuidData = append([]uuid.UUID(nil), v.uuidData...)
	out.listData = append([][]Value(nil), v.listData...)
	out.structData = append([]map[string]Value(nil), v.structData...)
	return out
}
