// Package types implements the columnar vectorized type system: logical
// types, typed values, validity masks, selection vectors, typed vectors, and
// the DataChunk that flows between physical operators.
package types

import "fmt"

// LogicalType tags the shape of a column's values. It is a closed
// enumeration: operators dispatch on it with a switch rather than through
// open polymorphism.
type LogicalType int

const (
	Invalid LogicalType = iota
	Null
	Boolean
	TinyInt  // int8
	SmallInt // int16
	Integer  // int32
	BigInt   // int64
	HugeInt  // int128, stored as a signed int64 high half and a uint64 low half
	Float    // float32
	Double   // float64
	Decimal
	Varchar
	Char
	Text
	Date      // days since epoch, int32
	Time      // microseconds since midnight, int64
	Timestamp // microseconds since epoch UTC, int64
	Interval
	Uuid
	Json
	Blob
	List
	Struct
	Map
	Union
	Enum
)

// TypeInfo carries the parameters that accompany a LogicalType tag:
// Decimal{precision, scale}, Char{n}, List<T>/Struct<fields>/Map<K,V>, and
// Enum{dictionary}. Fixed-width scalar types need nothing beyond Kind.
type TypeInfo struct {
	Kind LogicalType

	// Decimal
	Precision int
	Scale     int

	// Char
	Length int

	// List
	Elem *TypeInfo

	// Struct
	Fields []StructField

	// Map
	Key   *TypeInfo
	Value *TypeInfo

	// Union
	Variants []*TypeInfo

	// Enum
	Dictionary []string
}

// StructField names one member of a Struct<fields> type.
type StructField struct {
	Name string
	Type *TypeInfo
}

// Scalar builds a TypeInfo for a logical type that carries no parameters.
func Scalar(k LogicalType) *TypeInfo { return &TypeInfo{Kind: k} }

// NewDecimal builds a Decimal{precision, scale} TypeInfo.
func NewDecimal(precision, scale int) *TypeInfo {
	return &TypeInfo{Kind: Decimal, Precision: precision, Scale: scale}
}

// NewChar builds a Char{n} TypeInfo.
func NewChar(n int) *TypeInfo { return &TypeInfo{Kind: Char, Length: n} }

// NewList builds a List<T> TypeInfo.
func NewList(elem *TypeInfo) *TypeInfo { return &TypeInfo{Kind: List, Elem: elem} }

// NewStruct builds a Struct<fields> TypeInfo.
func NewStruct(fields []StructField) *TypeInfo { return &TypeInfo{Kind: Struct, Fields: fields} }

// FixedWidth reports whether values of this type occupy a constant number of
// bytes per slot (as opposed to the offset+bytes arena used for variable
// length types).
func (t *TypeInfo) FixedWidth() bool {
	switch t.Kind {
	case Varchar, Char, Text, Json, Blob, List, Struct, Map, Union:
		return false
	default:
		return true
	}
}

func (k LogicalType) String() string {
	switch k {
	case Invalid:
		return "INVALID"
	case Null:
		return "NULL"
	case Boolean:
		return "BOOLEAN"
	case TinyInt:
		return "TINYINT"
	case SmallInt:
		return "SMALLINT"
	case Integer:
		return "INTEGER"
	case BigInt:
		return "BIGINT"
	case HugeInt:
		return "HUGEINT"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case Decimal:
		return "DECIMAL"
	case Varchar:
		return "VARCHAR"
	case Char:
		return "CHAR"
	case Text:
		return "TEXT"
	case Date:
		return "DATE"
	case Time:
		return "TIME"
	case Timestamp:
		return "TIMESTAMP"
	case Interval:
		return "INTERVAL"
	case Uuid:
		return "UUID"
	case Json:
		return "JSON"
	case Blob:
		return "BLOB"
	case List:
		return "LIST"
	case Struct:
		return "STRUCT"
	case Map:
		return "MAP"
	case Union:
		return "UNION"
	case Enum:
		return "ENUM"
	default:
		return fmt.Sprintf("LogicalType(%d)", int(k))
	}
}

func (t *TypeInfo) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Decimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
	case Char:
		return fmt.Sprintf("CHAR(%d)", t.Length)
	case List:
		return fmt.Sprintf("LIST<%s>", t.Elem)
	default:
		return t.Kind.String()
	}
}
