package types

import "fmt"

// ColumnSchema names one output column of a DataChunk: its name and logical
// type.
type ColumnSchema struct {
	Name     string
	Type     *TypeInfo
	Nullable bool
}

// DataChunk is a row-aligned bundle of K vectors (one per output column),
// all sharing the same length len <= ChunkCapacity. DataChunks are the unit
// of flow between physical operators.
type DataChunk struct {
	columns []*Vector
	names   []string
	len     int
}

// WithRows allocates an empty chunk of the given logical row count; columns
// are attached afterward with SetVector.
func WithRows(len int) *DataChunk {
	return &DataChunk{len: len}
}

// NewChunk builds a chunk directly from a schema and parallel vectors. All
// vectors must have length == len(schema) entries and identical Len().
func NewChunk(schema []ColumnSchema, vectors []*Vector) (*DataChunk, error) {
	if len(schema) != len(vectors) {
		return nil, fmt.Errorf("types: schema has %d columns, got %d vectors", len(schema), len(vectors))
	}
	c := &DataChunk{}
	for i, v := range vectors {
		if i == 0 {
			c.len = v.Len()
		} else if v.Len() != c.len {
			return nil, fmt.Errorf("types: column %q has length %d, want %d", schema[i].Name, v.Len(), c.len)
		}
		c.columns = append(c.columns, v)
		c.names = append(c.names, schema[i].Name)
	}
	return c, nil
}

// SetVector attaches vec as column col (appending if col == ColumnCount()).
// The chunk's invariant (every vector shares chunk length) is the caller's
// responsibility, verified by Validate.
func (c *DataChunk) SetVector(col int, name string, vec *Vector) {
	for len(c.columns) <= col {
		c.columns = append(c.columns, nil)
		c.names = append(c.names, "")
	}
	c.columns[col] = vec
	c.names[col] = name
}

// GetVector returns column col.
func (c *DataChunk) GetVector(col int) *Vector { return c.columns[col] }

// ColumnName returns the display name of column col.
func (c *DataChunk) ColumnName(col int) string { return c.names[col] }

// ColumnCount returns the number of columns in the chunk.
func (c *DataChunk) ColumnCount() int { return len(c.columns) }

// Len returns the chunk's shared row count.
func (c *DataChunk) Len() int { return c.len }

// Validate checks the chunk-alignment invariant: every constituent vector
// has the same length as the chunk, and every validity mask has at least
// that many bits.
func (c *DataChunk) Validate() error {
	for i, v := range c.columns {
		if v.Len() != c.len {
			return fmt.Errorf("types: chunk misaligned: column %d (%s) has length %d, chunk length %d", i, c.names[i], v.Len(), c.len)
		}
		if v.Validity().Len() < c.len {
			return fmt.Errorf("types: chunk misaligned: column %d (%s) validity mask has %d bits, need >= %d", i, c.names[i], v.Validity().Len(), c.len)
		}
	}
	return nil
}

// Select materializes a new chunk containing only the rows named by sel.
func (c *DataChunk) Select(sel *SelectionVector) *DataChunk {
	out := &DataChunk{len: sel.Len(), names: append([]string(nil), c.names...)}
	for _, v := range c.columns {
		out.columns = append(out.columns, v.Select(sel))
	}
	return out
}

// Slice returns the row range [start, end) of the chunk as a new chunk
// sharing no backing storage with the original beyond value copies.
func (c *DataChunk) Slice(start, end int) *DataChunk {
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return c.Select(SelectionFromIndices(idx))
}
