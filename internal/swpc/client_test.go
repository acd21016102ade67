package swpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skysight/aurora-forecast/internal/cache"
)

const kpFeedBody = `[
	["time_tag","Kp","a_running","station_count"],
	["2026-03-01 06:00:00.000","2.67","12","8"],
	["2026-03-01 09:00:00.000","5.33","48","8"]
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(&http.Client{Timeout: 2 * time.Second}, srv.URL, cache.New(nil), 3*time.Minute, time.Hour, nil)
	return c, srv
}

func TestCurrentKpParsesLatestRow(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != kpIndexPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(kpFeedBody))
	})

	reading, err := c.CurrentKp(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Value != 5.33 {
		t.Fatalf("expected the last row's value 5.33, got %v", reading.Value)
	}
	if reading.Category != "Minor storm (G1)" {
		t.Fatalf("unexpected category %q", reading.Category)
	}
	want := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if !reading.ObservedAt.Equal(want) {
		t.Fatalf("expected observed time %v, got %v", want, reading.ObservedAt)
	}
	if reading.FetchedAt.IsZero() {
		t.Fatal("expected FetchedAt to be stamped")
	}
}

func TestCurrentKpServedFromCache(t *testing.T) {
	var requests int
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(kpFeedBody))
	})

	for i := 0; i < 3; i++ {
		if _, err := c.CurrentKp(context.Background()); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if requests != 1 {
		t.Fatalf("expected one upstream request, got %d", requests)
	}
}

func TestCurrentKpRetriesOnce(t *testing.T) {
	var requests int
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(kpFeedBody))
	})

	reading, err := c.CurrentKp(context.Background())
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if requests != 2 {
		t.Fatalf("expected 2 requests, got %d", requests)
	}
	if reading.Value != 5.33 {
		t.Fatalf("unexpected value %v", reading.Value)
	}
}

func TestCurrentKpUnavailable(t *testing.T) {
	var requests int
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.CurrentKp(context.Background())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if requests != 2 {
		t.Fatalf("expected initial attempt plus one retry, got %d requests", requests)
	}
}

func TestCurrentKpParseErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `<html>maintenance</html>`},
		{"header only", `[["time_tag","Kp"]]`},
		{"empty array", `[]`},
		{"non-numeric kp", `[["time_tag","Kp"],["2026-03-01 09:00:00.000","high","0","0"]]`},
		{"kp out of range", `[["time_tag","Kp"],["2026-03-01 09:00:00.000","12.5","0","0"]]`},
		{"bad time tag", `[["time_tag","Kp"],["yesterday","3.0","0","0"]]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})
			_, err := c.CurrentKp(context.Background())
			if !errors.Is(err, ErrUpstreamParse) {
				t.Fatalf("expected ErrUpstreamParse, got %v", err)
			}
		})
	}
}

func TestForecastWindowLengthAndValues(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(kpFeedBody))
	})

	window, err := c.ForecastWindow(context.Background(), 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(window) != 24 {
		t.Fatalf("expected 24 points, got %d", len(window))
	}
	for i, p := range window {
		if p.Value != 5.33 {
			t.Fatalf("point %d: expected 5.33, got %v", i, p.Value)
		}
		if i > 0 && !p.ObservedAt.After(window[i-1].ObservedAt) {
			t.Fatalf("point %d: timestamps not strictly increasing", i)
		}
	}
}

func TestForecastWindowTruncatesToRequest(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(kpFeedBody))
	})

	window, err := c.ForecastWindow(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 7 rounds up to the 12h bucket internally but the caller gets exactly 7.
	if len(window) != 7 {
		t.Fatalf("expected 7 points, got %d", len(window))
	}
}

func TestForecastWindowSharesBucketCache(t *testing.T) {
	var requests int
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(kpFeedBody))
	})

	// 1 and 5 both land in the 6h bucket; one network fetch serves both.
	if _, err := c.ForecastWindow(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.ForecastWindow(context.Background(), 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected one upstream request, got %d", requests)
	}
}

func TestWindowBucket(t *testing.T) {
	cases := []struct{ hours, want int }{
		{1, 6},
		{6, 6},
		{7, 12},
		{24, 24},
		{71, 72},
		{72, 72},
	}
	for _, tc := range cases {
		if got := windowBucket(tc.hours); got != tc.want {
			t.Fatalf("windowBucket(%d) = %d, want %d", tc.hours, got, tc.want)
		}
	}
}

func TestCategoryBands(t *testing.T) {
	cases := []struct {
		kp   float64
		want string
	}{
		{0, "Quiet"},
		{2.99, "Quiet"},
		{3, "Unsettled"},
		{5, "Minor storm (G1)"},
		{6, "Moderate storm (G2)"},
		{7, "Strong storm (G3)"},
		{8, "Severe storm (G4)"},
		{9, "Extreme storm (G5)"},
	}
	for _, tc := range cases {
		if got := Category(tc.kp); got != tc.want {
			t.Fatalf("Category(%v) = %q, want %q", tc.kp, got, tc.want)
		}
	}
}
