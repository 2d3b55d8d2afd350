// Package cache provides a two-level cache for synthesized audio: an
// in-memory LRU (L1) backed by a compressed on-disk store (L2) that
// survives between sessions. Re-converting a document with the same
// engine, voice and speed then skips synthesis entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Common errors for cache operations.
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCorrupted is returned when cached data fails to decompress.
	ErrCorrupted = errors.New("cache data corrupted")
)

// Stats holds cache performance counters.
type Stats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	ItemCount int64 // Number of items
	Hits      int64
	Misses    int64
	Evictions int64
}

// Config holds configuration for the synthesis cache.
type Config struct {
	// MemoryCapacity is the L1 budget in bytes.
	MemoryCapacity int64

	// DiskCapacity is the L2 budget in bytes.
	DiskCapacity int64

	// Dir is the directory for L2 blobs; empty selects the user cache dir.
	Dir string

	// CompressionLevel is the zstd level for L2 blobs (0 disables).
	CompressionLevel int

	// TTL expires L2 entries; zero disables expiry.
	TTL time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   64 * 1024 * 1024,
		DiskCapacity:     512 * 1024 * 1024,
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
	}
}

// Key builds the cache key for a chunk of text synthesized with the
// given engine parameters. Any change to engine, voice or speed yields
// different audio, so all three are part of the key.
func Key(engine, voice string, speed float64, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%.3f|", engine, voice, speed)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is the two-level synthesis cache.
type Cache struct {
	memory *MemoryCache
	disk   *DiskCache
}

// New creates a cache from config. A nil return with error indicates
// the disk tier could not be created; the memory tier never fails.
func New(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate cache directory: %w", err)
		}
		cfg.Dir = filepath.Join(base, "kokoro", "audio")
	}

	disk, err := NewDiskCache(cfg.Dir, cfg.DiskCapacity, cfg.CompressionLevel, cfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}

	return &Cache{
		memory: NewMemoryCache(cfg.MemoryCapacity),
		disk:   disk,
	}, nil
}

// Get looks up key, promoting disk hits into memory.
func (c *Cache) Get(key string) ([]byte, bool) {
	if data, ok := c.memory.Get(key); ok {
		return data, true
	}
	if data, ok := c.disk.Get(key); ok {
		_ = c.memory.Put(key, data)
		return data, true
	}
	return nil, false
}

// Put stores data in both tiers. Disk failures are non-fatal: synthesis
// results are reproducible, losing a cache write costs only time.
func (c *Cache) Put(key string, data []byte) {
	_ = c.memory.Put(key, data)
	_ = c.disk.Put(key, data)
}

// Stats returns counters for both tiers.
func (c *Cache) Stats() (memory, disk Stats) {
	return c.memory.Stats(), c.disk.Stats()
}

// Close flushes the disk index.
func (c *Cache) Close() error {
	return c.disk.Close()
}
