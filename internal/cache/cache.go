package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ResourceCache caches fetched catalog resources (the CSV index and
// per-event GeoJSON files) on disk so repeated loads skip the network.
// Entries expire after a TTL; total size is bounded with LRU eviction.
type ResourceCache struct {
	baseDir   string
	maxSize   int64 // Maximum cache size in bytes
	currSize  int64 // Current cache size (atomic)
	ttl       time.Duration
	mu        sync.RWMutex
	index     map[string]*entry
	evictChan chan struct{}
}

// entry describes one cached resource
type entry struct {
	key        string
	filePath   string
	size       int64
	accessTime time.Time
	createTime time.Time
}

// GetCacheDir returns the OS-specific cache directory
func GetCacheDir() string {
	homeDir, _ := os.UserHomeDir()

	switch goruntime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Caches", "maxar-open-data", "catalog")
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "maxar-open-data", "catalog")
		}
		return filepath.Join(homeDir, "AppData", "Local", "maxar-open-data", "catalog")
	default:
		if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
			return filepath.Join(xdgCache, "maxar-open-data", "catalog")
		}
		return filepath.Join(homeDir, ".cache", "maxar-open-data", "catalog")
	}
}

// NewResourceCache creates a cache rooted at baseDir
func NewResourceCache(baseDir string, maxSizeMB, ttlDays int) (*ResourceCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &ResourceCache{
		baseDir:   baseDir,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		ttl:       time.Duration(ttlDays) * 24 * time.Hour,
		index:     make(map[string]*entry),
		evictChan: make(chan struct{}, 1),
	}

	if err := c.loadIndex(); err != nil {
		return nil, fmt.Errorf("failed to load cache index: %w", err)
	}

	go c.evictionWorker()

	return c, nil
}

// Get retrieves a cached resource by URL. Expired entries are removed.
func (c *ResourceCache) Get(url string) ([]byte, bool) {
	key := hashKey(url)

	c.mu.RLock()
	e, exists := c.index[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if c.ttl > 0 && time.Since(e.createTime) > c.ttl {
		c.remove(key)
		return nil, false
	}

	data, err := os.ReadFile(e.filePath)
	if err != nil {
		// File vanished underneath us, drop the index entry
		c.remove(key)
		return nil, false
	}

	c.mu.Lock()
	e.accessTime = time.Now()
	c.mu.Unlock()

	return data, true
}

// Put stores a fetched resource under its URL
func (c *ResourceCache) Put(url string, data []byte) error {
	key := hashKey(url)
	filePath := filepath.Join(c.baseDir, key[:2], key+".dat")

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache subdirectory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	e := &entry{
		key:        key,
		filePath:   filePath,
		size:       int64(len(data)),
		accessTime: now,
		createTime: now,
	}

	c.mu.Lock()
	if old, exists := c.index[key]; exists {
		atomic.AddInt64(&c.currSize, -old.size)
	}
	c.index[key] = e
	c.mu.Unlock()

	atomic.AddInt64(&c.currSize, e.size)

	if atomic.LoadInt64(&c.currSize) > c.maxSize {
		select {
		case c.evictChan <- struct{}{}:
		default: // Already signaled
		}
	}

	return nil
}

// remove drops an entry and its file
func (c *ResourceCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.index[key]; exists {
		os.Remove(e.filePath) // Best effort cleanup
		delete(c.index, key)
		atomic.AddInt64(&c.currSize, -e.size)
	}
}

// evictionWorker runs in background and evicts entries when the cache is full
func (c *ResourceCache) evictionWorker() {
	for range c.evictChan {
		c.evict()
	}
}

// evict removes least recently used entries until under max size
func (c *ResourceCache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()

	currSize := atomic.LoadInt64(&c.currSize)
	if currSize <= c.maxSize {
		return
	}

	// Target 90% of max to avoid thrashing
	targetSize := c.maxSize * 9 / 10

	entries := make([]*entry, 0, len(c.index))
	for _, e := range c.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].accessTime.Before(entries[j].accessTime)
	})

	for _, e := range entries {
		if currSize <= targetSize {
			break
		}
		os.Remove(e.filePath) // Best effort cleanup
		delete(c.index, e.key)
		atomic.AddInt64(&c.currSize, -e.size)
		currSize -= e.size
	}
}

// loadIndex scans the cache directory and rebuilds the in-memory index
func (c *ResourceCache) loadIndex() error {
	return filepath.Walk(c.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if info.IsDir() || filepath.Ext(path) != ".dat" {
			return nil
		}

		key := filepath.Base(path)
		key = key[:len(key)-4]

		c.index[key] = &entry{
			key:        key,
			filePath:   path,
			size:       info.Size(),
			accessTime: info.ModTime(),
			createTime: info.ModTime(),
		}
		atomic.AddInt64(&c.currSize, info.Size())

		return nil
	})
}

// Stats returns cache statistics
func (c *ResourceCache) Stats() (entries int, sizeBytes int64, maxBytes int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.index), atomic.LoadInt64(&c.currSize), c.maxSize
}

// Clear removes all cached resources
func (c *ResourceCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.index {
		os.Remove(e.filePath)
	}
	c.index = make(map[string]*entry)
	atomic.StoreInt64(&c.currSize, 0)

	return nil
}

// hashKey derives a filesystem-safe key from a URL
func hashKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
