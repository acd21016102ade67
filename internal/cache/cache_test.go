package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrFetchMissThenHit(t *testing.T) {
	c := New(nil)

	var calls int
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return "kp=3.33", nil
	}

	v, err := c.GetOrFetch(context.Background(), "kp:current", time.Minute, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "kp=3.33" {
		t.Fatalf("unexpected value: %v", v)
	}

	v, err = c.GetOrFetch(context.Background(), "kp:current", time.Minute, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "kp=3.33" {
		t.Fatalf("unexpected value: %v", v)
	}
	if calls != 1 {
		t.Fatalf("expected one fetch, got %d", calls)
	}

	stats := c.Stats()
	if stats.Misses != 1 || stats.Hits != 1 {
		t.Fatalf("expected 1 miss and 1 hit, got misses=%d hits=%d", stats.Misses, stats.Hits)
	}
	if stats.Size != 1 {
		t.Fatalf("expected size 1, got %d", stats.Size)
	}
}

func TestGetOrFetchFailureStoresNothing(t *testing.T) {
	c := New(nil)
	boom := errors.New("upstream down")

	_, err := c.GetOrFetch(context.Background(), "kp:current", time.Minute, func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error to propagate, got %v", err)
	}

	stats := c.Stats()
	if stats.Size != 0 {
		t.Fatalf("failed fetch must not populate the cache, size=%d", stats.Size)
	}
	if stats.Misses != 1 {
		t.Fatalf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestGetOrFetchExpiryRefetches(t *testing.T) {
	c := New(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var calls int
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if _, err := c.GetOrFetch(context.Background(), "k", time.Minute, fetch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Just inside the TTL: served from cache.
	now = now.Add(59 * time.Second)
	v, err := c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 || calls != 1 {
		t.Fatalf("expected cached value, got v=%v calls=%d", v, calls)
	}

	// Past the TTL: the stale entry is evicted and refetched, never served.
	now = now.Add(2 * time.Second)
	v, err = c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 || calls != 2 {
		t.Fatalf("expected refetched value, got v=%v calls=%d", v, calls)
	}
}

// An expired entry must never be served as a fallback when the refetch fails.
func TestGetOrFetchNoStaleFallback(t *testing.T) {
	c := New(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, err := c.GetOrFetch(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
		return "old", nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(2 * time.Minute)
	boom := errors.New("upstream down")
	_, err := c.GetOrFetch(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the fetch error, got %v", err)
	}
	if c.Stats().Size != 0 {
		t.Fatal("stale entry should have been evicted")
	}
}

func TestClearPreservesCounters(t *testing.T) {
	c := New(nil)

	fetch := func(ctx context.Context) (any, error) { return 1, nil }
	c.GetOrFetch(context.Background(), "a", time.Minute, fetch)
	c.GetOrFetch(context.Background(), "a", time.Minute, fetch)
	c.GetOrFetch(context.Background(), "b", time.Minute, fetch)

	before := c.Stats()
	if before.Size != 2 {
		t.Fatalf("expected 2 entries before clear, got %d", before.Size)
	}

	if removed := c.Clear(); removed != 2 {
		t.Fatalf("expected Clear to report 2 removed, got %d", removed)
	}

	after := c.Stats()
	if after.Size != 0 || len(after.Entries) != 0 {
		t.Fatalf("expected empty cache after clear, got %+v", after)
	}
	if after.Hits != before.Hits || after.Misses != before.Misses {
		t.Fatalf("clear must preserve counters: before hits=%d misses=%d, after hits=%d misses=%d",
			before.Hits, before.Misses, after.Hits, after.Misses)
	}
}

func TestStatsEntryMetadata(t *testing.T) {
	c := New(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.GetOrFetch(context.Background(), "k", 90*time.Second, func(ctx context.Context) (any, error) {
		return 1, nil
	})
	now = now.Add(30 * time.Second)

	info, ok := c.Stats().Entries["k"]
	if !ok {
		t.Fatal("expected entry metadata for key")
	}
	if info.AgeSeconds != 30 {
		t.Fatalf("expected age 30s, got %v", info.AgeSeconds)
	}
	if info.TTLSeconds != 90 {
		t.Fatalf("expected ttl 90s, got %v", info.TTLSeconds)
	}
}

func TestGetOrFetchSingleFlight(t *testing.T) {
	c := New(nil)

	var fetches int64
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt64(&fetches, 1)
		<-release
		return "v", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]any, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			results[i] = v
		}(i)
	}

	// Give the goroutines time to pile onto the same key, then let the one
	// in-flight fetch finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&fetches); got != 1 {
		t.Fatalf("expected a single in-flight fetch, got %d", got)
	}
	for i, v := range results {
		if v != "v" {
			t.Fatalf("caller %d got %v", i, v)
		}
	}
}

func TestFetchTyped(t *testing.T) {
	c := New(nil)

	v, err := Fetch(context.Background(), c, "k", time.Minute, func(ctx context.Context) (float64, error) {
		return 5.67, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5.67 {
		t.Fatalf("unexpected value: %v", v)
	}

	_, err = Fetch(context.Background(), c, "missing", time.Minute, func(ctx context.Context) (float64, error) {
		return 0, errors.New("nope")
	})
	if err == nil {
		t.Fatal("expected error from typed fetch")
	}
}
