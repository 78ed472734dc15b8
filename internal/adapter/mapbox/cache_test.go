package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Yogyakarta, Indonesia"}}
	metrics := testMetrics()
	cached := NewCachedGeocoder(inner, 10, metrics)

	r1, err := cached.ReverseGeocode(context.Background(), -7.0, 110.0)
	require.NoError(t, err)
	r2, err := cached.ReverseGeocode(context.Background(), -7.0, 110.0)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")))
}

func TestCachedGeocoder_KeyedByGridCell(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{PlaceName: "Bantul"}}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ReverseGeocode(context.Background(), -7.01, 110.02)
	_, _ = cached.ReverseGeocode(context.Background(), -7.04, 110.01)
	_, _ = cached.ReverseGeocode(context.Background(), -7.2, 110.0)

	assert.Equal(t, 2, inner.calls, "positions in the same cell share an entry")
	assert.Equal(t, 2, cached.Len())
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ReverseGeocode(context.Background(), -6.6, 129.9)
	_, _ = cached.ReverseGeocode(context.Background(), -6.6, 129.9)

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.Len())
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("rate limited")}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, err := cached.ReverseGeocode(context.Background(), -7, 110)
	require.Error(t, err)
	_, err = cached.ReverseGeocode(context.Background(), -7, 110)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

// --- LRU tests ---

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)
	a := domain.GridKey{Lat: 1, Lon: 1}
	b := domain.GridKey{Lat: 2, Lon: 2}
	d := domain.GridKey{Lat: 3, Lon: 3}

	c.put(a, domain.GeocodingResult{PlaceName: "a"})
	c.put(b, domain.GeocodingResult{PlaceName: "b"})
	c.put(d, domain.GeocodingResult{PlaceName: "d"})

	_, ok := c.get(a)
	assert.False(t, ok, "oldest entry evicted")
	_, ok = c.get(b)
	assert.True(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_GetRefreshesRecency(t *testing.T) {
	c := newLRUCache(2)
	a := domain.GridKey{Lat: 1, Lon: 1}
	b := domain.GridKey{Lat: 2, Lon: 2}
	d := domain.GridKey{Lat: 3, Lon: 3}

	c.put(a, domain.GeocodingResult{PlaceName: "a"})
	c.put(b, domain.GeocodingResult{PlaceName: "b"})
	_, _ = c.get(a)
	c.put(d, domain.GeocodingResult{PlaceName: "d"})

	_, ok := c.get(a)
	assert.True(t, ok)
	_, ok = c.get(b)
	assert.False(t, ok, "least recently used entry evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	k := domain.GridKey{Lat: 1, Lon: 1}

	c.put(k, domain.GeocodingResult{PlaceName: "old"})
	c.put(k, domain.GeocodingResult{PlaceName: "new"})

	got, ok := c.get(k)
	require.True(t, ok)
	assert.Equal(t, "new", got.PlaceName)
	assert.Equal(t, 1, c.len())
}
