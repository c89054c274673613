package imagery

import (
	"context"
	"storyteller/internal/domain/story"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache memoises successful lookups, including empty results, for maxAge.
// Failures are never cached.
type Cache struct {
	finder  Finder
	maxAge  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	image     *story.Image
	fetchedAt time.Time
}

func NewCache(finder Finder, maxAge time.Duration) *Cache {
	return &Cache{
		finder:  finder,
		maxAge:  maxAge,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) Find(ctx context.Context, query string) (*story.Image, error) {
	key := strings.ToLower(strings.TrimSpace(query))

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().Sub(entry.fetchedAt) < c.maxAge {
		c.mu.Unlock()
		logrus.WithField("query", key).Debug("image lookup served from cache")
		return copyImage(entry.image), nil
	}
	c.mu.Unlock()

	img, err := c.finder.Find(ctx, query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{image: copyImage(img), fetchedAt: c.now()}
	c.mu.Unlock()

	return img, nil
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func copyImage(img *story.Image) *story.Image {
	if img == nil {
		return nil
	}
	cp := *img
	return &cp
}
