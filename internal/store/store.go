// Package store persists settled documents. FileCache keeps every cached
// document in one JSON file keyed by cache id, so several editors can share
// a cache without stepping on each other's entries.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrEmptyID is returned when a cache is created without an id.
var ErrEmptyID = errors.New("cache id is empty")

// Entry is one cached document.
type Entry struct {
	Value   string
	Updated time.Time
}

// FileCache stores documents in a JSON file. It implements effects.Sink for
// the document it was created for.
type FileCache struct {
	path string
	id   string
	now  func() time.Time

	mu sync.Mutex
}

// NewFileCache returns a cache for document id stored at path.
func NewFileCache(path, id string) (*FileCache, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	return &FileCache{path: path, id: id, now: time.Now}, nil
}

// Path returns the cache file.
func (c *FileCache) Path() string { return c.path }

// key escapes id for use as a gjson/sjson path.
func key(id string) string {
	r := strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`, ":", `\:`)
	return r.Replace(id)
}

func (c *FileCache) read() ([]byte, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("read cache %s: invalid json", c.path)
	}
	return data, nil
}

// write replaces the cache file through a temporary file in the same
// directory.
func (c *FileCache) write(data []byte) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Settled stores text as the cached document.
func (c *FileCache) Settled(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.read()
	if err != nil {
		return err
	}
	k := key(c.id)
	data, err = sjson.SetBytes(data, k+".value", text)
	if err != nil {
		return fmt.Errorf("update cache: %w", err)
	}
	data, err = sjson.SetBytes(data, k+".updated", c.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("update cache: %w", err)
	}
	return c.write(data)
}

// Load returns the cached document. ok is false when nothing is cached.
func (c *FileCache) Load() (e Entry, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.read()
	if err != nil {
		return Entry{}, false, err
	}
	r := gjson.GetBytes(data, key(c.id))
	if !r.Exists() {
		return Entry{}, false, nil
	}
	e.Value = r.Get("value").String()
	e.Updated = r.Get("updated").Time()
	return e, true, nil
}

// Clear removes the cached document.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.read()
	if err != nil {
		return err
	}
	if !gjson.GetBytes(data, key(c.id)).Exists() {
		return nil
	}
	data, err = sjson.DeleteBytes(data, key(c.id))
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return c.write(data)
}

// IDs returns the ids of every document in the cache file.
func (c *FileCache) IDs() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.read()
	if err != nil {
		return nil, err
	}
	var ids []string
	gjson.ParseBytes(data).ForEach(func(k, _ gjson.Result) bool {
		ids = append(ids, k.String())
		return true
	})
	return ids, nil
}
