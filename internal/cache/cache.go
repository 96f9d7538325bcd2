// Package cache stores parse results on disk, keyed by the grammar and the
// source they were produced from.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/gnoswap-labs/treeform/tree"
)

const entryExt = ".tree.lz4"

type entry struct {
	Nodes []tree.Node
}

type Cache struct {
	CacheDir string
	entries  map[string]*tree.Tree
	mutex    sync.RWMutex
	hits     int
	misses   int
}

func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		CacheDir: cacheDir,
		entries:  make(map[string]*tree.Tree),
	}, nil
}

// Key identifies the result of parsing source with grammar. Both inputs are
// length-prefixed so that moving bytes between them changes the key.
func Key(grammar, source []byte) string {
	h := sha256.New()
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(grammar)))
	h.Write(n[:])
	h.Write(grammar)
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached tree for key. A corrupt entry counts as a miss and
// is removed.
func (c *Cache) Get(key string) (*tree.Tree, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if t, ok := c.entries[key]; ok {
		c.hits++
		return t, true
	}

	t, err := c.load(key)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			_ = os.Remove(c.path(key))
		}
		c.misses++
		return nil, false
	}
	c.entries[key] = t
	c.hits++
	return t, true
}

func (c *Cache) Set(key string, t *tree.Tree) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.save(key, t); err != nil {
		return err
	}
	c.entries[key] = t
	return nil
}

// Stats returns the number of hits and misses since the cache was opened.
func (c *Cache) Stats() (hits, misses int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.hits, c.misses
}

// InvalidateAll drops every entry, in memory and on disk.
func (c *Cache) InvalidateAll() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*tree.Tree)
	files, err := filepath.Glob(filepath.Join(c.CacheDir, "*"+entryExt))
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("failed to remove cache entry: %w", err)
		}
	}
	return nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.CacheDir, key+entryExt)
}

func (c *Cache) load(key string) (*tree.Tree, error) {
	file, err := os.Open(c.path(key))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var e entry
	if err := gob.NewDecoder(lz4.NewReader(file)).Decode(&e); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return tree.FromNodes(e.Nodes)
}

func (c *Cache) save(key string, t *tree.Tree) error {
	tmp, err := os.CreateTemp(c.CacheDir, "entry-*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := lz4.NewWriter(tmp)
	if err := gob.NewEncoder(zw).Encode(entry{Nodes: t.Nodes()}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to compress cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path(key))
}
