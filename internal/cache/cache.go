// Package cache stores built class structures on disk, keyed by file and
// invalidated by content hash.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/panbanda/cohesion/pkg/analyzer/cohesion"
	"github.com/zeebo/blake3"
)

// Cache provides file-based caching of per-file structures.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is the on-disk form of one cached structure.
type Entry struct {
	Hash      string                `json:"hash"`
	Timestamp time.Time             `json:"timestamp"`
	Snapshot  cohesion.FileSnapshot `json:"snapshot"`
}

// New creates a cache rooted at dir. A disabled cache never hits and never
// writes. A ttl of zero means entries never expire.
func New(dir string, ttl time.Duration, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Cache{
		dir:     dir,
		ttl:     ttl,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache reads and writes entries.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func cacheKey(path, boundName string) string {
	return boundName + "\x00" + path
}

// Get returns the structure cached for path and boundName if it was built
// from exactly content and has not expired.
func (c *Cache) Get(path, boundName string, content []byte) (*cohesion.Structure, bool) {
	if !c.enabled {
		return nil, false
	}

	entryPath := c.keyPath(cacheKey(path, boundName))
	data, err := os.ReadFile(entryPath)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if entry.Hash != HashBytes(content) {
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.Timestamp) > c.ttl {
		os.Remove(entryPath)
		return nil, false
	}

	return cohesion.FromSnapshot(entry.Snapshot), true
}

// Set stores the structure built from content for path and boundName.
func (c *Cache) Set(path, boundName string, content []byte, s *cohesion.Structure) error {
	if !c.enabled {
		return nil
	}

	entryData, err := json.Marshal(Entry{
		Hash:      HashBytes(content),
		Timestamp: time.Now(),
		Snapshot:  s.Snapshot(),
	})
	if err != nil {
		return err
	}

	return os.WriteFile(c.keyPath(cacheKey(path, boundName)), entryData, 0600)
}

// Invalidate removes a cache entry. A missing entry is not an error.
func (c *Cache) Invalidate(path, boundName string) error {
	if !c.enabled {
		return nil
	}
	err := os.Remove(c.keyPath(cacheKey(path, boundName)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath converts a key to a filesystem path.
func (c *Cache) keyPath(key string) string {
	// Use BLAKE3 hash of key for filename to avoid path issues
	hash := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}

// Stats returns cache statistics.
type Stats struct {
	Entries   int   `json:"entries" yaml:"entries" toon:"entries"`
	TotalSize int64 `json:"total_size" yaml:"total_size" toon:"total_size"`
}

// GetStats returns statistics about the cache.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	err := filepath.WalkDir(c.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.Entries++
		stats.TotalSize += info.Size()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
