package storage

import (
	"fmt"

	"github.com/dgraph-io/ristretto"

	"colonnade/internal/types"
)

// Cache memoizes a row group's decompressed columns, keyed by
// (row group index, column index), so a hot row group is not re-decoded on
// every scan. It is optional: Scan is correct with a nil *Cache.
type Cache struct {
	c *ristretto.Cache
}

// NewCache builds a cache bounded to approximately maxBytes of decompressed
// column data.
func NewCache(maxBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxBytes / 100, // ~10x the expected number of entries
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: building row-group cache: %w", err)
	}
	return &Cache{c: c}, nil
}

type cacheKey struct {
	rowGroup int
	column   int
}

func (c *Cache) get(rowGroup, column int) ([]types.Value, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.c.Get(cacheKey{rowGroup, column})
	if !ok {
		return nil, false
	}
	return v.([]types.Value), true
}

func (c *Cache) set(rowGroup, column int, values []types.Value) {
	if c == nil {
		return
	}
	cost := int64(len(values)) * 32 // rough per-value cost estimate
	c.c.Set(cacheKey{rowGroup, column}, values, cost)
}

// InvalidateRowGroup drops every cached column for rowGroup. The storage
// layer itself never calls it.
func (c *Cache) InvalidateRowGroup(rowGroup int, columnCount int) {
	if c == nil {
		return
	}
	for col := 0; col < columnCount; col++ {
		c.c.Del(cacheKey{rowGroup, col})
	}
}
