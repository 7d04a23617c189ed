package dimfilter

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"imgharvest/internal/prober"
)

// DefaultCacheSize bounds the number of URLs a Cache remembers
const DefaultCacheSize = 4096

type size struct {
	width, height int
}

// Cache remembers measured dimensions per URL for a fixed TTL. It is safe for
// concurrent use and may be shared across Filter calls.
type Cache struct {
	lru *expirable.LRU[string, size]
}

// NewCache creates a cache whose entries live for ttl
func NewCache(ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, size](DefaultCacheSize, nil, ttl)}
}

// Get returns cached dimensions for url if present and fresh
func (c *Cache) Get(url string) (int, int, bool) {
	s, ok := c.lru.Get(url)
	return s.width, s.height, ok
}

// Put stores dimensions for url
func (c *Cache) Put(url string, width, height int) {
	c.lru.Add(url, size{width: width, height: height})
}

// cachingProber consults the cache before delegating. Failures are not cached.
type cachingProber struct {
	cache *Cache
	next  prober.DimensionProber
}

func (p cachingProber) Probe(ctx context.Context, url string) (int, int, error) {
	if w, h, ok := p.cache.Get(url); ok {
		return w, h, nil
	}
	w, h, err := p.next.Probe(ctx, url)
	if err == nil {
		p.cache.Put(url, w, h)
	}
	return w, h, err
}
