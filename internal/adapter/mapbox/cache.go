package mapbox

import (
	"container/list"
	"context"
	"sync"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache keyed by grid cell, so
// presenters that label the same report share one lookup per cell.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := domain.GridKey{Lat: domain.RoundToGrid(lat), Lon: domain.RoundToGrid(lon)}
	if result, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return result, err
	}
	// Empty results are not cached so a later run can retry them.
	if result.FormattedAddress != "" || result.PlaceName != "" {
		c.cache.put(key, result)
	}
	return result, nil
}

// Len reports the number of cached cells.
func (c *CachedGeocoder) Len() int {
	return c.cache.len()
}

// lruCache is a thread-safe LRU cache of geocoding results.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List // front = most recently used
	entries    map[domain.GridKey]*list.Element
}

type cacheEntry struct {
	key   domain.GridKey
	value domain.GeocodingResult
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[domain.GridKey]*list.Element),
	}
}

func (c *lruCache) get(key domain.GridKey) (domain.GeocodingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.GeocodingResult{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *lruCache) put(key domain.GridKey, value domain.GeocodingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: value})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
