// Package attachment caches attachment file content so unchanged files
// are read from disk at most once per process lifetime.
package attachment

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/parley-ai/parley/internal/logging"
)

// Cache is a process-wide, read-mostly content cache keyed by
// (path, mtime). Inserts are idempotent: re-caching identical content
// is harmless, so no locking beyond the map mutex is needed. An
// optional fsnotify watcher evicts entries whose files change without
// an mtime bump.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	watcher *fsnotify.Watcher

	// readFile and stat are swappable for tests.
	readFile func(string) ([]byte, error)
	stat     func(string) (os.FileInfo, error)
}

type cacheEntry struct {
	mtime   int64
	content []byte
}

// NewCache creates an attachment cache.
func NewCache() *Cache {
	return &Cache{
		entries:  make(map[string]cacheEntry),
		readFile: os.ReadFile,
		stat:     os.Stat,
	}
}

// NewCacheWithFS creates a cache with injected filesystem functions.
func NewCacheWithFS(readFile func(string) ([]byte, error), stat func(string) (os.FileInfo, error)) *Cache {
	return &Cache{
		entries:  make(map[string]cacheEntry),
		readFile: readFile,
		stat:     stat,
	}
}

// Get returns the content of the file at path, reading from disk only
// when the cache has no entry for the file's current mtime.
func (c *Cache) Get(path string) ([]byte, error) {
	info, err := c.stat(path)
	if err != nil {
		return nil, err
	}
	mtime := info.ModTime().UnixNano()

	c.mu.Lock()
	if entry, ok := c.entries[path]; ok && entry.mtime == mtime {
		c.mu.Unlock()
		return entry.content, nil
	}
	c.mu.Unlock()

	content, err := c.readFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[path] = cacheEntry{mtime: mtime, content: content}
	c.mu.Unlock()

	c.watch(path)
	return content, nil
}

// Evict drops the cache entry for path.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartWatcher begins watching cached files and evicting entries on
// change. Without a watcher the mtime key alone governs freshness.
func (c *Cache) StartWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.watcher = watcher
	paths := make([]string, 0, len(c.entries))
	for path := range c.entries {
		paths = append(paths, path)
	}
	c.mu.Unlock()

	for _, path := range paths {
		c.watch(path)
	}

	go c.run(watcher)
	return nil
}

func (c *Cache) watch(path string) {
	c.mu.Lock()
	watcher := c.watcher
	c.mu.Unlock()

	if watcher == nil {
		return
	}
	if err := watcher.Add(path); err != nil {
		logging.Debug().Str("path", path).Err(err).Msg("attachment watch failed")
	}
}

func (c *Cache) run(watcher *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				c.Evict(ev.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Debug().Err(err).Msg("attachment watcher error")
		}
	}
}

// Close stops the watcher if one is running.
func (c *Cache) Close() error {
	c.mu.Lock()
	watcher := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	if watcher != nil {
		return watcher.Close()
	}
	return nil
}
