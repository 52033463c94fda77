package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"karolbroda.com/chromaplay/internal/track"
)

const (
	cacheVersion    = 1
	defaultTTL      = 24 * time.Hour
	cacheDirName    = "chromaplay"
	searchCacheName = "search"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheCorrupt = errors.New("cache corrupt")
)

type SearchEntry struct {
	Version   uint8
	Query     string
	Tracks    []track.Track
	CreatedAt int64
	ExpiresAt int64
}

type DiskCache struct {
	basePath string
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
	memCache map[string]*SearchEntry
}

// New opens the search cache under the user cache directory. If the
// directory cannot be created the cache still works, in memory only.
func New(ttl time.Duration) (*DiskCache, error) {
	cacheDir, err := getCacheDirectory()
	if err != nil {
		return NewMemory(ttl), err
	}
	c, err := NewDiskCache(filepath.Join(cacheDir, searchCacheName), ttl)
	if err != nil {
		return NewMemory(ttl), err
	}
	return c, nil
}

func NewDiskCache(dir string, ttl time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	c := NewMemory(ttl)
	c.basePath = dir
	return c, nil
}

func NewMemory(ttl time.Duration) *DiskCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &DiskCache{
		ttl:      ttl,
		now:      time.Now,
		memCache: make(map[string]*SearchEntry),
	}
}

func (c *DiskCache) Path() string {
	return c.basePath
}

func getCacheDirectory() (string, error) {
	// xdg cache home takes priority
	xdgCache := os.Getenv("XDG_CACHE_HOME")
	if xdgCache != "" {
		return filepath.Join(xdgCache, cacheDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".cache", cacheDirName), nil
}

// NormalizeQuery folds case and whitespace so equivalent searches share an entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func generateKey(query string) string {
	hash := sha256.Sum256([]byte(NormalizeQuery(query)))
	return hex.EncodeToString(hash[:12])
}

func (c *DiskCache) getFilePath(key string) string {
	if c.basePath == "" {
		return ""
	}
	return filepath.Join(c.basePath, key+".bin")
}

func (c *DiskCache) Get(query string) (*SearchEntry, error) {
	if NormalizeQuery(query) == "" {
		return nil, ErrCacheMiss
	}

	key := generateKey(query)
	now := c.now().Unix()

	c.mu.RLock()
	entry, exists := c.memCache[key]
	c.mu.RUnlock()

	if exists {
		if entry.ExpiresAt > now {
			return entry, nil
		}
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
	}

	if c.basePath == "" {
		if exists {
			return nil, ErrCacheExpired
		}
		return nil, ErrCacheMiss
	}

	filePath := c.getFilePath(key)
	entry, err := c.readFromDisk(filePath)
	if err != nil {
		return nil, err
	}

	if entry.ExpiresAt <= now {
		_ = os.Remove(filePath)
		return nil, ErrCacheExpired
	}

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	return entry, nil
}

func (c *DiskCache) Set(query string, tracks []track.Track) error {
	normalized := NormalizeQuery(query)
	if normalized == "" {
		return errors.New("invalid cache query")
	}

	now := c.now()
	entry := &SearchEntry{
		Version:   cacheVersion,
		Query:     normalized,
		Tracks:    append([]track.Track(nil), tracks...),
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(c.ttl).Unix(),
	}

	key := generateKey(query)

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	return c.writeToDisk(c.getFilePath(key), entry)
}

func (c *DiskCache) readFromDisk(filePath string) (*SearchEntry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	defer file.Close()

	var entry SearchEntry
	if err := gob.NewDecoder(file).Decode(&entry); err != nil {
		return nil, ErrCacheCorrupt
	}

	// version mismatch means stale format
	if entry.Version != cacheVersion {
		_ = os.Remove(filePath)
		return nil, ErrCacheCorrupt
	}

	return &entry, nil
}

func (c *DiskCache) writeToDisk(filePath string, entry *SearchEntry) error {
	// write to temp file first, then rename for atomicity
	tmpPath := filePath + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(file).Encode(entry); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, filePath)
}

func (c *DiskCache) binFiles() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := entries[:0]
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".bin") {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *DiskCache) Clear() error {
	c.mu.Lock()
	c.memCache = make(map[string]*SearchEntry)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	files, err := c.binFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		_ = os.Remove(filepath.Join(c.basePath, f.Name()))
	}
	return nil
}

// Prune drops expired and unreadable entries and reports how many went.
func (c *DiskCache) Prune() (int, error) {
	now := c.now().Unix()

	pruned := 0
	c.mu.Lock()
	for key, entry := range c.memCache {
		if entry.ExpiresAt <= now {
			delete(c.memCache, key)
			if c.basePath == "" {
				pruned++
			}
		}
	}
	c.mu.Unlock()

	if c.basePath == "" {
		return pruned, nil
	}

	files, err := c.binFiles()
	if err != nil {
		return 0, err
	}

	for _, f := range files {
		filePath := filepath.Join(c.basePath, f.Name())
		entry, err := c.readFromDisk(filePath)
		if err != nil {
			_ = os.Remove(filePath)
			pruned++
			continue
		}

		if entry.ExpiresAt <= now {
			_ = os.Remove(filePath)
			pruned++
		}
	}

	return pruned, nil
}

func (c *DiskCache) Stats() (count int, sizeBytes int64, err error) {
	if c.basePath == "" {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return len(c.memCache), 0, nil
	}

	files, err := c.binFiles()
	if err != nil {
		return 0, 0, err
	}

	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			continue
		}
		count++
		sizeBytes += info.Size()
	}

	return count, sizeBytes, nil
}

func (c *DiskCache) ListAll() ([]*SearchEntry, error) {
	if c.basePath == "" {
		c.mu.RLock()
		defer c.mu.RUnlock()
		out := make([]*SearchEntry, 0, len(c.memCache))
		for _, e := range c.memCache {
			out = append(out, e)
		}
		return out, nil
	}

	files, err := c.binFiles()
	if err != nil {
		return nil, err
	}

	var result []*SearchEntry
	for _, f := range files {
		entry, err := c.readFromDisk(filepath.Join(c.basePath, f.Name()))
		if err != nil {
			continue
		}
		result = append(result, entry)
	}

	return result, nil
}

func (c *DiskCache) Delete(query string) error {
	if NormalizeQuery(query) == "" {
		return errors.New("invalid cache query")
	}

	key := generateKey(query)

	c.mu.Lock()
	delete(c.memCache, key)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	err := os.Remove(c.getFilePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
