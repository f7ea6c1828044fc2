package astro

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultTTL is how long a fetched forecast stays fresh within one local day.
const DefaultTTL = 6 * time.Hour

// CacheEntry is a forecast stamped with its fetch time (epoch seconds).
type CacheEntry struct {
	Forecast
	TS       int64  `json:"_ts"`
	Source   string `json:"source,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Cache persists the most recent entry. Load returns (nil, nil) when empty.
type Cache interface {
	Load() (*CacheEntry, error)
	Save(entry *CacheEntry) error
}

// FetchedAt returns the capture time in loc.
func (e *CacheEntry) FetchedAt(loc *time.Location) time.Time {
	return time.Unix(e.TS, 0).In(loc)
}

// IsFresh uses the default six hour TTL.
func (e *CacheEntry) IsFresh(now time.Time) bool {
	return e.IsFreshWithin(now, DefaultTTL)
}

// IsFreshWithin reports whether the entry is younger than ttl and was captured
// on or after the most recent local midnight before now.
func (e *CacheEntry) IsFreshWithin(now time.Time, ttl time.Duration) bool {
	if e == nil || e.TS == 0 {
		return false
	}
	fetched := e.FetchedAt(now.Location())
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if fetched.Before(midnight) {
		return false
	}
	return now.Sub(fetched) < ttl
}

// FileCache stores the entry as a JSON document, replaced atomically.
type FileCache struct {
	Path string
}

func NewFileCache(path string) *FileCache {
	return &FileCache{Path: path}
}

func (c *FileCache) Load() (*CacheEntry, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("astro cache decode (%s): %w", c.Path, err)
	}
	return &entry, nil
}

func (c *FileCache) Save(entry *CacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.Path), filepath.Base(c.Path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.Path)
}
