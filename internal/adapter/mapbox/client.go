// Package mapbox resolves grid cell coordinates to place names via the Mapbox Geocoding API.
package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// placeTypes limits reverse lookups to administrative names; offshore cells usually get
// no feature back.
const placeTypes = "place,locality,region"

// Rate-limited and 5xx responses are retried with doubling backoff.
const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	language   string
	httpClient *http.Client
	baseURL    string
	backoff    time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:    token,
		language: "en",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		backoff: initialBackoff,
		metrics: metrics,
		logger:  logger,
	}
}

// ReverseGeocode converts coordinates to place details. An empty result with a nil
// error means Mapbox knows no place at that position.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {placeTypes},
		"language":     {c.language},
	}

	start := time.Now()
	result, err := c.doRequestWithRetry(ctx, u+"?"+params.Encode())
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		c.logger.Debug("reverse geocode failed", "lat", lat, "lon", lon, "error", err)
	case result.FormattedAddress == "" && result.PlaceName == "":
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return result, err
}

func (c *Client) doRequestWithRetry(ctx context.Context, fullURL string) (domain.GeocodingResult, error) {
	backoff := c.backoff
	for attempt := 1; ; attempt++ {
		result, err := c.doRequest(ctx, fullURL)
		var se *statusError
		if err == nil || attempt == maxAttempts || !errors.As(err, &se) || !se.retryable() {
			return result, err
		}
		c.logger.Debug("mapbox request retrying", "status", se.status, "attempt", attempt, "backoff", backoff)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return domain.GeocodingResult{}, ctx.Err()
		}
		backoff = sharedretry.NextBackoff(backoff, maxBackoff)
	}
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GeocodingResult{}, &statusError{status: resp.StatusCode, body: string(body)}
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.GeocodingResult{}, nil
	}

	f := mapboxResp.Features[0]
	return domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}, nil
}

// statusError is a non-200 response from the API.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("mapbox API error: status %d: %s", e.status, e.body)
}

func (e *statusError) retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= http.StatusInternalServerError
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	PlaceName string  `json:"place_name"`
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
}
