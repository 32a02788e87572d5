package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
	"github.com/lcalzada-xor/vulnsync/internal/telemetry"
)

// FileCache implements ports.FindingCache over two files per key: a data
// file holding the raw record list and a metadata file with timestamp,
// filters, and count. Entries are never mutated, only replaced wholesale.
// Concurrent writers from separate processes may race; last writer wins,
// which is acceptable because entries are re-derivations of the same
// remote data.
type FileCache struct {
	dir    string
	maxAge time.Duration
}

// New creates the cache directory if needed.
func New(dir string, maxAge time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{dir: dir, maxAge: maxAge}, nil
}

// key hashes the canonical (key-sorted) filter JSON so that filter key
// order does not affect the cache key.
func (c *FileCache) key(filters domain.FilterSet) string {
	canonical, err := filters.Canonical()
	if err != nil {
		// Unencodable filter values collapse to the empty-filter key.
		canonical = []byte("{}")
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:16])
}

func (c *FileCache) dataPath(key string) string {
	return filepath.Join(c.dir, "vulns_"+key+".json")
}

func (c *FileCache) metaPath(key string) string {
	return filepath.Join(c.dir, "vulns_"+key+"_meta.json")
}

// Get returns the cached records when both files exist, parse, and the
// entry is within the max-age window. Every other condition, including
// corrupted or partially written files, is a miss.
func (c *FileCache) Get(filters domain.FilterSet) ([]domain.RawRecord, *domain.CacheInfo, bool) {
	key := c.key(filters)

	info := c.readInfo(key)
	if info == nil {
		telemetry.CacheLookups.WithLabelValues("miss").Inc()
		return nil, nil, false
	}
	if info.Stale {
		telemetry.CacheLookups.WithLabelValues("stale").Inc()
		return nil, nil, false
	}

	data, err := os.ReadFile(c.dataPath(key))
	if err != nil {
		telemetry.CacheLookups.WithLabelValues("miss").Inc()
		return nil, nil, false
	}
	var records []domain.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Debug("cache data corrupted, treating as miss", "key", key, "error", err)
		telemetry.CacheLookups.WithLabelValues("miss").Inc()
		return nil, nil, false
	}

	telemetry.CacheLookups.WithLabelValues("hit").Inc()
	return records, info, true
}

// Set writes the data file first, then the metadata file. A cache hit
// requires both, so a crash between the writes leaves a miss, not a
// corrupt entry.
func (c *FileCache) Set(filters domain.FilterSet, records []domain.RawRecord) error {
	key := c.key(filters)

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := os.WriteFile(c.dataPath(key), data, 0644); err != nil {
		return fmt.Errorf("write cache data: %w", err)
	}

	meta := domain.CacheInfo{
		Timestamp: time.Now().UTC(),
		Filters:   filters,
		Count:     len(records),
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(c.metaPath(key), metaJSON, 0644); err != nil {
		return fmt.Errorf("write cache metadata: %w", err)
	}
	return nil
}

// GetInfo returns the entry metadata with computed age, or nil when the
// entry is absent or unreadable. Unlike Get, a stale entry is still
// reported (with Stale set) so callers can show cache age.
func (c *FileCache) GetInfo(filters domain.FilterSet) *domain.CacheInfo {
	return c.readInfo(c.key(filters))
}

func (c *FileCache) readInfo(key string) *domain.CacheInfo {
	data, err := os.ReadFile(c.metaPath(key))
	if err != nil {
		return nil
	}
	var info domain.CacheInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil
	}
	if info.Timestamp.IsZero() {
		return nil
	}

	age := time.Since(info.Timestamp)
	info.AgeHours = age.Hours()
	info.Stale = age > c.maxAge
	return &info
}

// ClearAll removes every cache entry in the directory.
func (c *FileCache) ClearAll() error {
	matches, err := filepath.Glob(filepath.Join(c.dir, "vulns_*.json"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}
