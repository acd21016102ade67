package swpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/skysight/aurora-forecast/internal/cache"
	"github.com/skysight/aurora-forecast/internal/metrics"
	"github.com/skysight/aurora-forecast/internal/upstream"
)

// DefaultBaseURL is the production NOAA SWPC host.
const DefaultBaseURL = "https://services.swpc.noaa.gov"

// kpIndexPath serves the official planetary K-index as an array of arrays:
// a header row followed by ["2025-11-06 09:00:00.000", "3.33", "18", "8"]
// rows where [0] is the time tag and [1] the Kp value. The most recent
// observation is the last row.
const kpIndexPath = "/products/noaa-planetary-k-index.json"

var (
	// ErrUpstreamUnavailable means the feed was unreachable after retry.
	ErrUpstreamUnavailable = errors.New("space weather feed unavailable")
	// ErrUpstreamParse means the feed was reachable but the payload was unusable.
	ErrUpstreamParse = errors.New("space weather feed returned unusable payload")
)

const (
	keyCurrentKp = "kp:current"

	// Forecast-window cache keys are bucketed so the key space stays bounded
	// by the tool surface, not by caller input diversity.
	windowBucketHours = 6

	// MaxWindowHours is the longest supported forecast window.
	MaxWindowHours = 72
)

func windowKey(bucket int) string {
	return fmt.Sprintf("kp:window:%dh", bucket)
}

func windowBucket(hours int) int {
	b := ((hours + windowBucketHours - 1) / windowBucketHours) * windowBucketHours
	if b > MaxWindowHours {
		b = MaxWindowHours
	}
	return b
}

// Client fetches Kp data from NOAA SWPC. All fetches are routed through the
// shared cache; raw network calls happen only on a miss or stale entry.
type Client struct {
	baseURL   string
	cache     *cache.Cache
	kpTTL     time.Duration
	windowTTL time.Duration
	httpCfg   upstream.Config
	circuit   *gobreaker.CircuitBreaker
	metrics   *metrics.Metrics

	now func() time.Time
}

// NewClient creates a SWPC client. Transient failures (timeout, 5xx, rate
// limit) are retried once with a short backoff before surfacing
// ErrUpstreamUnavailable. metrics may be nil.
func NewClient(httpClient *http.Client, baseURL string, c *cache.Cache, kpTTL, windowTTL time.Duration, m *metrics.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		cache:     c,
		kpTTL:     kpTTL,
		windowTTL: windowTTL,
		httpCfg: upstream.Config{
			Client: httpClient,
			Backoff: upstream.BackoffConfig{
				MaxRetries:      1,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     2 * time.Second,
			},
		},
		circuit: upstream.NewBreaker("swpc"),
		metrics: m,
		now:     time.Now,
	}
}

// CurrentKp returns the latest planetary Kp reading, served from cache when fresh.
func (c *Client) CurrentKp(ctx context.Context) (KpReading, error) {
	return cache.Fetch(ctx, c.cache, keyCurrentKp, c.kpTTL, c.fetchCurrentKp)
}

// ForecastWindow returns one reading per hour for the next hoursAhead hours.
// NOAA publishes no per-hour Kp series on this feed, so the window is
// extrapolated from the current snapshot; the contract is about shape, not
// predictive accuracy. hoursAhead must already be validated by the caller.
func (c *Client) ForecastWindow(ctx context.Context, hoursAhead int) ([]KpReading, error) {
	bucket := windowBucket(hoursAhead)

	window, err := cache.Fetch(ctx, c.cache, windowKey(bucket), c.windowTTL, func(ctx context.Context) ([]KpReading, error) {
		return c.buildWindow(ctx, bucket)
	})
	if err != nil {
		return nil, err
	}

	if hoursAhead < len(window) {
		window = window[:hoursAhead]
	}
	return window, nil
}

func (c *Client) fetchCurrentKp(ctx context.Context) (KpReading, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.baseURL+kpIndexPath, nil)
	}

	resp, err := upstream.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		c.metrics.ObserveUpstream("swpc", "error")
		return KpReading{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		c.metrics.ObserveUpstream("swpc", "parse_error")
		return KpReading{}, fmt.Errorf("%w: %v", ErrUpstreamParse, err)
	}

	// Row 0 is the header; at least one data row must follow.
	if len(rows) < 2 {
		c.metrics.ObserveUpstream("swpc", "parse_error")
		return KpReading{}, fmt.Errorf("%w: no data rows", ErrUpstreamParse)
	}

	reading, err := parseKpRow(rows[len(rows)-1])
	if err != nil {
		c.metrics.ObserveUpstream("swpc", "parse_error")
		return KpReading{}, fmt.Errorf("%w: %v", ErrUpstreamParse, err)
	}

	reading.FetchedAt = c.now().UTC()
	c.metrics.ObserveUpstream("swpc", "success")
	c.metrics.SetKpIndex(reading.Value)
	return reading, nil
}

// buildWindow extrapolates an hourly series of length bucket from the current
// reading. The current reading is fetched through its own cache key, so a warm
// Kp entry is reused.
func (c *Client) buildWindow(ctx context.Context, bucket int) ([]KpReading, error) {
	current, err := c.CurrentKp(ctx)
	if err != nil {
		return nil, err
	}

	base := current.FetchedAt.Truncate(time.Hour)
	window := make([]KpReading, 0, bucket)
	for i := 1; i <= bucket; i++ {
		window = append(window, KpReading{
			Value:      current.Value,
			ObservedAt: base.Add(time.Duration(i) * time.Hour),
			FetchedAt:  current.FetchedAt,
			Category:   current.Category,
		})
	}
	return window, nil
}

func parseKpRow(row []any) (KpReading, error) {
	if len(row) < 2 {
		return KpReading{}, fmt.Errorf("short row (%d fields)", len(row))
	}

	timeTag, ok := row[0].(string)
	if !ok {
		return KpReading{}, fmt.Errorf("time tag is not a string")
	}
	kpStr, ok := row[1].(string)
	if !ok {
		return KpReading{}, fmt.Errorf("kp value is not a string")
	}

	value, err := strconv.ParseFloat(kpStr, 64)
	if err != nil {
		return KpReading{}, fmt.Errorf("invalid kp value %q: %v", kpStr, err)
	}
	if value < 0 || value > 9 {
		return KpReading{}, fmt.Errorf("kp value %v outside 0-9", value)
	}

	observedAt, err := parseTimeTag(timeTag)
	if err != nil {
		return KpReading{}, err
	}

	return KpReading{
		Value:      value,
		ObservedAt: observedAt,
		Category:   Category(value),
	}, nil
}

func parseTimeTag(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05.000", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time tag %q", s)
}
