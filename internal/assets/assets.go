// Package assets handles rig asset loading (clips, landmark recordings)
// and caching.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when no source holds the requested file.
var ErrNotFound = errors.New("asset not found")

// Manager loads files from a stack of sources.
type Manager struct {
	sources []fs.FS
	cache   *Cache
	mu      sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddDir adds a directory to the manager.
// Sources are searched in reverse order (last added = highest priority).
func (m *Manager) AddDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("adding asset dir %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding asset dir %s: not a directory", path)
	}
	m.AddFS(os.DirFS(path))
	return nil
}

// AddFS adds a file system to the manager, e.g. an embed.FS.
func (m *Manager) AddFS(fsys fs.FS) {
	m.mu.Lock()
	m.sources = append(m.sources, fsys)
	m.mu.Unlock()
}

// Load loads a file. Names use forward slashes and are relative to the
// sources; absolute paths are read from disk directly.
func (m *Manager) Load(name string) ([]byte, error) {
	// Check cache first
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	if filepath.IsAbs(name) {
		data, err := os.ReadFile(name)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if err != nil {
			return nil, err
		}
		m.cache.Set(name, data)
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Search sources in reverse order
	for i := len(m.sources) - 1; i >= 0; i-- {
		data, err := fs.ReadFile(m.sources[i], name)
		if err == nil {
			m.cache.Set(name, data)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Close drops all sources and cached data.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sources = nil
	m.cache.Clear()
}

// Cache returns the manager's cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
