// Package gateway serves upstream data through a TTL cache. Fresh entries
// are returned without an upstream call; on a miss the fetch runs under a
// fixed timeout, and when it fails a stale entry for the same key is served
// instead of the error.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"batball/internal/apperr"
	"batball/internal/cache"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultTimeout = 10 * time.Second

type Gateway struct {
	store   cache.Store
	timeout time.Duration
	logger  *zap.Logger
	group   singleflight.Group
	now     func() time.Time

	hits        atomic.Int64
	misses      atomic.Int64
	staleServed atomic.Int64
	failures    atomic.Int64
}

type Option func(*Gateway)

func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

func New(store cache.Store, opts ...Option) *Gateway {
	g := &Gateway{
		store:   store,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Result is a value served by the gateway plus where it came from.
type Result[T any] struct {
	Value    T
	StoredAt time.Time
	// Cached is true when no upstream call produced Value in this request.
	Cached bool
	// Stale is true when Value is past its TTL and served because upstream failed.
	Stale bool
	Err   string
}

type fetchOptions struct {
	refresh bool
}

type FetchOption func(*fetchOptions)

// ForceRefresh skips a fresh cache hit. A stale fallback still applies.
func ForceRefresh(refresh bool) FetchOption {
	return func(o *fetchOptions) {
		o.refresh = refresh
	}
}

// Fetch returns the value cached under key or loads it with fetch.
func Fetch[T any](
	ctx context.Context,
	g *Gateway,
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context) (T, error),
	opts ...FetchOption,
) (Result[T], error) {
	var options fetchOptions
	for _, opt := range opts {
		opt(&options)
	}

	var result Result[T]

	entry := g.lookup(ctx, key)
	if entry != nil && !options.refresh && entry.IsFresh(g.now()) {
		if err := json.Unmarshal(entry.Value, &result.Value); err == nil {
			g.hits.Add(1)
			result.StoredAt = entry.StoredAt
			result.Cached = true
			return result, nil
		}
		g.logger.Warn("cached value does not decode, refetching", zap.String("key", key))
	}
	g.misses.Add(1)

	fresh, err, _ := g.group.Do(key, func() (any, error) {
		return g.load(ctx, key, ttl, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
	})
	if err == nil {
		loaded := fresh.(*loaded)
		if err := json.Unmarshal(loaded.data, &result.Value); err != nil {
			return result, apperr.Wrap(apperr.KindInternal, "decode fetched value", err)
		}
		result.StoredAt = loaded.storedAt
		return result, nil
	}

	g.failures.Add(1)

	// запасной вариант: устаревшая запись
	if entry == nil {
		entry = g.lookup(ctx, key)
	}
	if entry != nil {
		if decodeErr := json.Unmarshal(entry.Value, &result.Value); decodeErr == nil {
			g.staleServed.Add(1)
			g.logger.Warn("upstream failed, serving stale cache",
				zap.String("key", key),
				zap.Duration("age", entry.Age(g.now())),
				zap.Error(err),
			)
			result.StoredAt = entry.StoredAt
			result.Cached = true
			result.Stale = !entry.IsFresh(g.now())
			result.Err = err.Error()
			return result, nil
		}
	}

	g.logger.Error("upstream failed, no cache available", zap.String("key", key), zap.Error(err))
	return result, apperr.Wrap(apperr.KindNoCacheAvailable, "no cached data available", err)
}

type loaded struct {
	data     []byte
	storedAt time.Time
}

func (g *Gateway) load(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (*loaded, error) {
	// запрос к апстриму не отменяется вместе с клиентским запросом
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	value, err := fetch(fetchCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			if !apperr.Is(err, apperr.KindUpstreamTimeout) {
				err = apperr.Wrap(apperr.KindUpstreamTimeout, "upstream request timed out", err)
			}
		}
		return nil, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamMalformed, "encode upstream value", err)
	}

	storedAt := g.now()
	entry := &cache.Entry{Key: key, Value: data, StoredAt: storedAt, TTL: ttl}
	if err := g.store.Set(context.WithoutCancel(ctx), entry); err != nil {
		// кэш best-effort: ответ все равно отдаем
		g.logger.Warn("failed to store cache entry", zap.String("key", key), zap.Error(err))
	}

	return &loaded{data: data, storedAt: storedAt}, nil
}

func (g *Gateway) lookup(ctx context.Context, key string) *cache.Entry {
	entry, err := g.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			g.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return entry
}

// Seed stores value under key with an explicit StoredAt, so a persisted
// snapshot can act as a stale fallback after a restart. Existing entries
// that are newer are left alone.
func (g *Gateway) Seed(ctx context.Context, key string, value json.RawMessage, storedAt time.Time, ttl time.Duration) error {
	if current := g.lookup(ctx, key); current != nil && !current.StoredAt.Before(storedAt) {
		return nil
	}
	if !json.Valid(value) {
		return fmt.Errorf("seed %s: invalid JSON payload", key)
	}
	return g.store.Set(ctx, &cache.Entry{Key: key, Value: value, StoredAt: storedAt, TTL: ttl})
}

func (g *Gateway) Clear(ctx context.Context) error {
	return g.store.Clear(ctx)
}

func (g *Gateway) Keys(ctx context.Context) ([]string, error) {
	return g.store.Keys(ctx)
}

type Stats struct {
	Hits             int64 `json:"hits"`
	Misses           int64 `json:"misses"`
	StaleServed      int64 `json:"staleServed"`
	UpstreamFailures int64 `json:"upstreamFailures"`
	Keys             int   `json:"keys"`
}

func (g *Gateway) Stats(ctx context.Context) Stats {
	stats := Stats{
		Hits:             g.hits.Load(),
		Misses:           g.misses.Load(),
		StaleServed:      g.staleServed.Load(),
		UpstreamFailures: g.failures.Load(),
	}
	if keys, err := g.store.Keys(ctx); err == nil {
		stats.Keys = len(keys)
	}
	return stats
}
