// Package storage implements the block-oriented table storage layer: tables
// as ordered sequences of compressed column-segment row groups, row append,
// and segment-oriented scan with pushed filters and limits.
package storage

import "colonnade/internal/types"

// ColumnDef names one column of a table's immutable schema.
type ColumnDef struct {
	Name     string
	Type     *types.TypeInfo
	Nullable bool
}

// Schema is a table's ordered, immutable column list.
type Schema struct {
	Columns []ColumnDef
}

// IndexOf returns the position of the named column, or -1 if absent.
func (s Schema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ChunkSchema projects the full schema's columns at ids down to the
// types.ColumnSchema slice a DataChunk carries.
func (s Schema) ChunkSchema(ids []int) []types.ColumnSchema {
	out := make([]types.ColumnSchema, len(ids))
	for i, id := range ids {
		c := s.Columns[id]
		out[i] = types.ColumnSchema{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	return out
}
