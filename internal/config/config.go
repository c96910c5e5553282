// Package config implements the engine configuration store: a TOML-backed
// EngineConfig behind a reader-writer Store (reads are frequent, writes
// are rare and serialized). The store is a lifecycle-managed object handed
// to the engine at construction, never a package-level singleton.
package config

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
)

// EngineConfig is the tunable surface of the engine.
type EngineConfig struct {
	// RowGroupSize is validated and stored here; the storage layer does
	// not read it and flushes row groups at storage.DefaultRowGroupSize.
	RowGroupSize int `toml:"row_group_size"`

	// PoolSize bounds the worker pool parallel operators drive. Zero
	// means hardware parallelism.
	PoolSize int `toml:"pool_size"`

	// CacheBytes is validated and stored here; the engine builds no
	// decompressed row-group cache from it, so tables run without one.
	CacheBytes int64 `toml:"cache_bytes"`

	// JoinPartitions is validated and stored here; the hash join does not
	// read it and always uses its fixed count of 256 partitions.
	JoinPartitions int `toml:"join_partitions"`
}

// Default returns the engine's built-in configuration.
func Default() EngineConfig {
	return EngineConfig{
		RowGroupSize:   8192,
		PoolSize:       0,
		CacheBytes:     64 << 20,
		JoinPartitions: 256,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c EngineConfig) Validate() error {
	if c.RowGroupSize <= 0 {
		return fmt.Errorf("config: row_group_size must be positive, got %d", c.RowGroupSize)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("config: pool_size must be >= 0, got %d", c.PoolSize)
	}
	if c.CacheBytes < 0 {
		return fmt.Errorf("config: cache_bytes must be >= 0, got %d", c.CacheBytes)
	}
	if c.JoinPartitions <= 0 {
		return fmt.Errorf("config: join_partitions must be positive, got %d", c.JoinPartitions)
	}
	return nil
}

// Parse reads TOML content from r over the defaults.
func Parse(r io.Reader) (EngineConfig, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: decode error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

// ParseFile opens path and parses it as an engine configuration.
func ParseFile(path string) (EngineConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config: open file %q: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Store guards an EngineConfig with a reader-writer lock.
type Store struct {
	mu  sync.RWMutex
	cfg EngineConfig
}

// NewStore builds a store holding cfg.
func NewStore(cfg EngineConfig) *Store {
	return &Store{cfg: cfg}
}

// Get returns the current configuration by value.
func (s *Store) Get() EngineConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies fn to the configuration under the write lock; the change
// is discarded if the result fails validation.
func (s *Store) Update(fn func(*EngineConfig)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cfg
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	s.cfg = next
	return nil
}
