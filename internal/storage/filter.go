package storage

import "colonnade/internal/types"

// FilterOp is the comparison a pushed filter applies to one column.
type FilterOp int

const (
	Eq FilterOp = iota
	Neq
	Lt
	Lte
	Gt
	Gte
)

// Filter is a single pushed-down predicate conjunct: column OP value,
// where Column is a table-level column id. The optimizer
// (internal/optimizer) decomposes a Filter plan node's conjuncts into
// these before they reach Scan.
type Filter struct {
	Column int
	Op     FilterOp
	Value  types.Value
}

// matches evaluates the filter against v using SQL three-valued logic: a
// NULL operand makes the predicate UNKNOWN, which callers treat as "drop
// the row".
func (f Filter) matches(v types.Value) bool {
	if v.Null || f.Value.Null {
		return false
	}
	cmp := compareValues(v, f.Value)
	switch f.Op {
	case Eq:
		return cmp == 0
	case Neq:
		return cmp != 0
	case Lt:
		return cmp < 0
	case Lte:
		return cmp <= 0
	case Gt:
		return cmp > 0
	case Gte:
		return cmp >= 0
	default:
		return false
	}
}

// compareValues orders two non-null values of the same logical type.
// Returns <0, 0, >0.
func compareValues(a, b types.Value) int {
	switch a.Type {
	case types.Boolean:
		if a.AsBool() == b.AsBool() {
			return 0
		}
		if !a.AsBool() {
			return -1
		}
		return 1
	case types.TinyInt, types.SmallInt, types.Integer, types.BigInt, types.Date, types.Time, types.Timestamp:
		switch {
		case a.AsInt64() < b.AsInt64():
			return -1
		case a.AsInt64() > b.AsInt64():
			return 1
		default:
			return 0
		}
	case types.Float, types.Double:
		switch {
		case a.AsFloat64() < b.AsFloat64():
			return -1
		case a.AsFloat64() > b.AsFloat64():
			return 1
		default:
			return 0
		}
	default:
		as, bs := a.AsString(), b.AsString()
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
}
