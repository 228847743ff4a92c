package lut

import (
	"fmt"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/richinsley/gopostfx/logger"
	"go.uber.org/zap"
)

// Cache keeps recently parsed tables by path so switching between grading
// files does not re-read them.
type Cache struct {
	cache *lru.Cache[string, *Cube]
}

// NewCache returns a cache holding up to size tables.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[string, *Cube](size)
	if err != nil {
		return nil, fmt.Errorf("lut: cache: %w", err)
	}
	return &Cache{cache: c}, nil
}

// Load returns the parsed table at path, reading it on a miss. Failed loads
// are not cached.
func (c *Cache) Load(path string) (*Cube, error) {
	key := filepath.Clean(path)
	if cube, ok := c.cache.Get(key); ok {
		return cube, nil
	}
	cube, err := Load(key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cube)
	logger.Log.Debug("lookup table loaded",
		zap.String("path", key),
		zap.String("title", cube.Title),
		zap.Int("size", cube.Size))
	return cube, nil
}

// Invalidate drops path so the next Load reads the file again.
func (c *Cache) Invalidate(path string) bool {
	return c.cache.Remove(filepath.Clean(path))
}

func (c *Cache) Len() int { return c.cache.Len() }

func (c *Cache) Purge() { c.cache.Purge() }
