package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"batball/internal/apperr"
	"batball/internal/cache"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type payload struct {
	Names []string `json:"names"`
}

func newTestGateway(t *testing.T, clock *fakeClock, opts ...Option) *Gateway {
	t.Helper()
	base := []Option{WithClock(clock.Now), WithLogger(zaptest.NewLogger(t))}
	return New(cache.NewMemoryStore(), append(base, opts...)...)
}

func TestFetchWithinTTLCallsUpstreamOnce(t *testing.T) {
	clock := newFakeClock()
	gw := newTestGateway(t, clock)
	ctx := context.Background()

	var calls atomic.Int32
	fetch := func(context.Context) (payload, error) {
		calls.Add(1)
		return payload{Names: []string{"IND vs AUS"}}, nil
	}

	first, err := Fetch(ctx, gw, "live_matches", 30*time.Second, fetch)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if first.Cached {
		t.Fatal("first fetch must come from upstream")
	}

	clock.Advance(29 * time.Second)
	second, err := Fetch(ctx, gw, "live_matches", 30*time.Second, fetch)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if calls.Load() != 1 {
		t.Fatalf("upstream calls = %d, want 1", calls.Load())
	}
	if !second.Cached || second.Stale {
		t.Fatalf("second result cached=%v stale=%v, want cached fresh", second.Cached, second.Stale)
	}
	if second.Value.Names[0] != "IND vs AUS" {
		t.Fatalf("value = %+v", second.Value)
	}

	stats := gw.Stats(ctx)
	if stats.Hits != 1 || stats.Misses != 1 || stats.Keys != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestFetchRefetchesAfterTTL(t *testing.T) {
	clock := newFakeClock()
	gw := newTestGateway(t, clock)
	ctx := context.Background()

	var calls atomic.Int32
	fetch := func(context.Context) (int32, error) {
		return calls.Add(1), nil
	}

	_, _ = Fetch(ctx, gw, "k", 30*time.Second, fetch)
	clock.Advance(31 * time.Second)
	result, err := Fetch(ctx, gw, "k", 30*time.Second, fetch)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.Value != 2 || result.Cached {
		t.Fatalf("result = %+v, want fresh upstream value 2", result)
	}
	if !result.StoredAt.Equal(clock.Now()) {
		t.Fatalf("storedAt = %v, want %v", result.StoredAt, clock.Now())
	}
}

func TestFetchServesStaleOnUpstreamFailure(t *testing.T) {
	clock := newFakeClock()
	gw := newTestGateway(t, clock)
	ctx := context.Background()

	storedAt := clock.Now()
	_, err := Fetch(ctx, gw, "live_matches", 30*time.Second, func(context.Context) (payload, error) {
		return payload{Names: []string{"old"}}, nil
	})
	if err != nil {
		t.Fatalf("seed fetch: %v", err)
	}

	clock.Advance(40 * time.Second)
	result, err := Fetch(ctx, gw, "live_matches", 30*time.Second, func(context.Context) (payload, error) {
		return payload{}, apperr.UpstreamHTTP(503, nil)
	})
	if err != nil {
		t.Fatalf("expected stale fallback, got error %v", err)
	}
	if !result.Stale || !result.Cached {
		t.Fatalf("result stale=%v cached=%v, want both", result.Stale, result.Cached)
	}
	if result.Value.Names[0] != "old" {
		t.Fatalf("value = %+v, want stale value", result.Value)
	}
	if !result.StoredAt.Equal(storedAt) {
		t.Fatalf("storedAt = %v, want %v", result.StoredAt, storedAt)
	}
	if result.Err == "" {
		t.Fatal("stale result must carry the upstream error")
	}
	if gw.Stats(ctx).StaleServed != 1 {
		t.Fatalf("stale served = %d", gw.Stats(ctx).StaleServed)
	}
}

func TestFetchTimeoutFallsBackToStale(t *testing.T) {
	clock := newFakeClock()
	gw := newTestGateway(t, clock, WithTimeout(20*time.Millisecond))
	ctx := context.Background()

	_, _ = Fetch(ctx, gw, "live_matches", 30*time.Second, func(context.Context) (string, error) {
		return "forty seconds old", nil
	})
	clock.Advance(40 * time.Second)

	result, err := Fetch(ctx, gw, "live_matches", 30*time.Second, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Value != "forty seconds old" || !result.Stale {
		t.Fatalf("result = %+v", result)
	}
}

func TestFetchWithoutCacheReturnsTypedError(t *testing.T) {
	clock := newFakeClock()
	ctx := context.Background()

	tests := []struct {
		name      string
		opts      []Option
		fetch     func(context.Context) (string, error)
		wantCause apperr.Kind
	}{
		{
			name: "timeout",
			opts: []Option{WithTimeout(10 * time.Millisecond)},
			fetch: func(ctx context.Context) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
			wantCause: apperr.KindUpstreamTimeout,
		},
		{
			name: "http error",
			fetch: func(context.Context) (string, error) {
				return "", apperr.UpstreamHTTP(500, nil)
			},
			wantCause: apperr.KindUpstreamHTTP,
		},
		{
			name: "malformed",
			fetch: func(context.Context) (string, error) {
				return "", apperr.New(apperr.KindUpstreamMalformed, "bad payload")
			},
			wantCause: apperr.KindUpstreamMalformed,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			gw := newTestGateway(t, clock, testCase.opts...)

			_, err := Fetch(ctx, gw, "match_1", 30*time.Second, testCase.fetch)
			if err == nil {
				t.Fatal("expected error")
			}
			if apperr.KindOf(err) != apperr.KindNoCacheAvailable {
				t.Fatalf("kind = %v, want no cache available", apperr.KindOf(err))
			}
			if !apperr.Is(err, testCase.wantCause) {
				t.Fatalf("error %v does not carry cause kind %v", err, testCase.wantCause)
			}
		})
	}
}

func TestForceRefreshBypassesFreshEntry(t *testing.T) {
	clock := newFakeClock()
	gw := newTestGateway(t, clock)
	ctx := context.Background()

	var calls atomic.Int32
	fetch := func(context.Context) (int32, error) {
		return calls.Add(1), nil
	}

	_, _ = Fetch(ctx, gw, "k", time.Minute, fetch)
	result, err := Fetch(ctx, gw, "k", time.Minute, fetch, ForceRefresh(true))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.Value != 2 || calls.Load() != 2 {
		t.Fatalf("value=%d calls=%d, want refetch", result.Value, calls.Load())
	}

	// принудительное обновление при сбое отдает последнее значение
	failing := func(context.Context) (int32, error) { return 0, errors.New("dial tcp: refused") }
	result, err = Fetch(ctx, gw, "k", time.Minute, failing, ForceRefresh(true))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.Value != 2 || result.Stale || result.Err == "" {
		t.Fatalf("result = %+v, want fresh fallback with error", result)
	}
}

func TestConcurrentMissesShareOneUpstreamCall(t *testing.T) {
	clock := newFakeClock()
	gw := newTestGateway(t, clock)
	ctx := context.Background()

	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "value", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := Fetch(ctx, gw, "series_1", time.Hour, fetch)
			if err == nil {
				results[i] = result.Value
			}
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() > 5 || calls.Load() < 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
	for i, value := range results {
		if value != "value" {
			t.Fatalf("result %d = %q", i, value)
		}
	}
}

func TestSeedActsAsStaleFallback(t *testing.T) {
	clock := newFakeClock()
	gw := newTestGateway(t, clock)
	ctx := context.Background()

	snapshot, _ := json.Marshal(payload{Names: []string{"from snapshot"}})
	if err := gw.Seed(ctx, "live_matches", snapshot, clock.Now().Add(-time.Hour), 30*time.Second); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := Fetch(ctx, gw, "live_matches", 30*time.Second, func(context.Context) (payload, error) {
		return payload{}, apperr.UpstreamHTTP(502, nil)
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !result.Stale || result.Value.Names[0] != "from snapshot" {
		t.Fatalf("result = %+v", result)
	}

	if err := gw.Seed(ctx, "bad", json.RawMessage(`{`), clock.Now(), time.Second); err == nil {
		t.Fatal("expected invalid JSON to be rejected")
	}
}

func TestClearDropsEntries(t *testing.T) {
	clock := newFakeClock()
	gw := newTestGateway(t, clock)
	ctx := context.Background()

	_, _ = Fetch(ctx, gw, "a", time.Minute, func(context.Context) (int, error) { return 1, nil })
	if err := gw.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	keys, _ := gw.Keys(ctx)
	if len(keys) != 0 {
		t.Fatalf("keys = %v", keys)
	}
}
