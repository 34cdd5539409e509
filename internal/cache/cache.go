// Package cache stores decoded input files keyed by path and content hash.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// Cache is a directory of entries. A disabled cache misses on every lookup
// and drops every store.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is one cached payload.
type Entry struct {
	Path      string    `json:"path"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data"`
}

// New creates the cache directory when enabled.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Enabled reports whether lookups can hit.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// HashBytes computes a BLAKE3 hash of data as a hex string.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile computes a BLAKE3 hash of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// Get returns the payload stored for path when it was stored for the same
// content and has not expired.
func (c *Cache) Get(path string, content []byte) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	file := c.entryPath(path)
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	if e.Path != path || e.Hash != HashBytes(content) {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.Timestamp) > c.ttl {
		_ = os.Remove(file)
		return nil, false
	}
	return e.Data, true
}

// Put stores data for path and content.
func (c *Cache) Put(path string, content, data []byte) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(Entry{
		Path:      path,
		Hash:      HashBytes(content),
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(c.entryPath(path), raw, 0600)
}

// Invalidate removes the entry for path. A missing entry is not an error.
func (c *Cache) Invalidate(path string) error {
	if !c.Enabled() {
		return nil
	}
	if err := os.Remove(c.entryPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes all entries.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// entryPath names the entry file by the hash of path so any path is a valid
// file name.
func (c *Cache) entryPath(path string) string {
	return filepath.Join(c.dir, HashBytes([]byte(path))+".json")
}

// Stats describes the cache directory.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
}

// GetStats walks the cache directory.
func (c *Cache) GetStats() (*Stats, error) {
	st := &Stats{}
	if !c.Enabled() {
		return st, nil
	}
	var oldest time.Time
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
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
		st.Entries++
		st.TotalSize += info.Size()
		if oldest.IsZero() || info.ModTime().Before(oldest) {
			oldest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !oldest.IsZero() {
		st.OldestAge = time.Since(oldest)
	}
	return st, nil
}
