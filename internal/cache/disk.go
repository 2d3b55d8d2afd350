package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "index.gob"

// DiskCache is the persistent L2 tier. Blobs are stored one file per
// key, optionally zstd-compressed, with a gob index for fast startup.
type DiskCache struct {
	basePath string
	capacity int64
	size     int64
	ttl      time.Duration

	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	Key        string
	Size       int64 // Size on disk (compressed)
	Timestamp  time.Time
	LastAccess time.Time
	Compressed bool
}

// NewDiskCache creates a disk cache rooted at basePath.
func NewDiskCache(basePath string, capacity int64, compressionLevel int, ttl time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		basePath: basePath,
		capacity: capacity,
		ttl:      ttl,
		compress: compressionLevel > 0,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if dc.compress {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		dc.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	}

	// A missing or unreadable index just means a cold start.
	if err := dc.loadIndex(); err != nil {
		dc.index = make(map[string]*diskEntry)
	}
	dc.expire()
	dc.recalculate()

	return dc, nil
}

// Get retrieves a blob from disk.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(dc.blobPath(key))
	if err != nil {
		// Stale index entry; drop it.
		delete(dc.index, key)
		dc.stats.Misses++
		return nil, false
	}

	if entry.Compressed {
		data, err = dc.decoder.DecodeAll(data, nil)
		if err != nil {
			delete(dc.index, key)
			_ = os.Remove(dc.blobPath(key))
			dc.stats.Misses++
			return nil, false
		}
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	return data, true
}

// Put writes a blob to disk, evicting least recently used entries when
// over capacity.
func (dc *DiskCache) Put(key string, data []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	blob := data
	compressed := false
	if dc.compress {
		blob = dc.encoder.EncodeAll(data, nil)
		compressed = true
	}

	blobSize := int64(len(blob))
	if blobSize > dc.capacity {
		return ErrItemTooLarge
	}

	for dc.size+blobSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	if err := os.WriteFile(dc.blobPath(key), blob, 0o644); err != nil {
		return fmt.Errorf("failed to write cache blob: %w", err)
	}

	if old, ok := dc.index[key]; ok {
		dc.size -= old.Size
	}
	now := time.Now()
	dc.index[key] = &diskEntry{
		Key:        key,
		Size:       blobSize,
		Timestamp:  now,
		LastAccess: now,
		Compressed: compressed,
	}
	dc.size += blobSize
	dc.stats.Size = dc.size
	dc.stats.ItemCount = int64(len(dc.index))
	return nil
}

// Stats returns a snapshot of the cache counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	s := dc.stats
	s.ItemCount = int64(len(dc.index))
	s.Size = dc.size
	return s
}

// Close persists the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.saveIndex()
}

func (dc *DiskCache) blobPath(key string) string {
	return filepath.Join(dc.basePath, key+".bin")
}

func (dc *DiskCache) evictOldest() {
	var oldest *diskEntry
	for _, e := range dc.index {
		if oldest == nil || e.LastAccess.Before(oldest.LastAccess) {
			oldest = e
		}
	}
	if oldest == nil {
		return
	}
	_ = os.Remove(dc.blobPath(oldest.Key))
	dc.size -= oldest.Size
	delete(dc.index, oldest.Key)
	dc.stats.Evictions++
}

// expire drops entries older than the TTL.
func (dc *DiskCache) expire() {
	if dc.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-dc.ttl)
	for key, e := range dc.index {
		if e.Timestamp.Before(cutoff) {
			_ = os.Remove(dc.blobPath(key))
			delete(dc.index, key)
		}
	}
}

func (dc *DiskCache) recalculate() {
	dc.size = 0
	for _, e := range dc.index {
		dc.size += e.Size
	}
	dc.stats.Size = dc.size
	dc.stats.ItemCount = int64(len(dc.index))
}

func (dc *DiskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.basePath, indexFile))
	if err != nil {
		return err
	}
	defer f.Close()

	var entries []*diskEntry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	for _, e := range entries {
		dc.index[e.Key] = e
	}
	return nil
}

func (dc *DiskCache) saveIndex() error {
	entries := make([]*diskEntry, 0, len(dc.index))
	for _, e := range dc.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	tmp := filepath.Join(dc.basePath, indexFile+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(entries); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filepath.Join(dc.basePath, indexFile))
}
