package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
row_group_size = 4096
pool_size = 8
cache_bytes = 1048576
`))
	require.NoError(t, err)
	require.Equal(t, 4096, cfg.RowGroupSize)
	require.Equal(t, 8, cfg.PoolSize)
	require.Equal(t, int64(1<<20), cfg.CacheBytes)
	require.Equal(t, Default().JoinPartitions, cfg.JoinPartitions, "unset keys keep defaults")
}

func TestParseRejectsInvalidValues(t *testing.T) {
	_, err := Parse(strings.NewReader(`row_group_size = 0`))
	require.Error(t, err)

	_, err = Parse(strings.NewReader(`not toml [`))
	require.Error(t, err)
}

func TestStoreUpdateValidatesAndPublishes(t *testing.T) {
	s := NewStore(Default())

	require.NoError(t, s.Update(func(c *EngineConfig) { c.PoolSize = 4 }))
	require.Equal(t, 4, s.Get().PoolSize)

	err := s.Update(func(c *EngineConfig) { c.RowGroupSize = -1 })
	require.Error(t, err)
	require.Equal(t, Default().RowGroupSize, s.Get().RowGroupSize, "failed update leaves config untouched")
}
