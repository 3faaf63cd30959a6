package cache

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/cardset/internal/metrics"
)

// ErrorPolicy reports whether a failure should be memoized
type ErrorPolicy func(err error) bool

// DefaultErrorPolicy memoizes every failure except the caller's own cancellation
func DefaultErrorPolicy(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// RequestCache memoizes remote computations by key.
// Concurrent callers on a missing key share one in-flight computation; once it
// settles the value (or failure) is stored and later callers never reach fn.
type RequestCache[V any] struct {
	name      string
	store     Store[V]
	group     singleflight.Group
	normalize func(string) string
	cacheErr  ErrorPolicy
	lookups   *prometheus.CounterVec
	logger    *zap.Logger
}

// Option configures a RequestCache
type Option[V any] func(*RequestCache[V])

// WithNormalizer rewrites keys before lookup, e.g. to strip a namespace prefix
func WithNormalizer[V any](fn func(string) string) Option[V] {
	return func(c *RequestCache[V]) { c.normalize = fn }
}

// WithErrorPolicy replaces DefaultErrorPolicy
func WithErrorPolicy[V any](policy ErrorPolicy) Option[V] {
	return func(c *RequestCache[V]) { c.cacheErr = policy }
}

// WithMetrics reports lookups to m.CacheLookupsTotal
func WithMetrics[V any](m *metrics.Metrics) Option[V] {
	return func(c *RequestCache[V]) {
		if m != nil {
			c.lookups = m.CacheLookupsTotal
		}
	}
}

// WithLogger sets the logger used for debug output
func WithLogger[V any](l *zap.Logger) Option[V] {
	return func(c *RequestCache[V]) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a RequestCache named name (used in metrics and logs) over store
func New[V any](name string, store Store[V], opts ...Option[V]) *RequestCache[V] {
	c := &RequestCache[V]{
		name:      name,
		store:     store,
		normalize: func(k string) string { return k },
		cacheErr:  DefaultErrorPolicy,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do returns the memoized result for key, computing it with fn on a miss.
// If ctx ends while waiting, Do returns ctx.Err(); the shared computation keeps
// running detached from ctx and still populates the cache.
func (c *RequestCache[V]) Do(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, error) {
	key = c.normalize(key)

	if entry, ok := c.store.Get(key); ok {
		c.record(metrics.CacheHit)
		return entry.Value, entry.Err
	}

	// Written by the flight leader only; read after the channel receive
	outcome := metrics.CacheShared
	ch := c.group.DoChan(key, func() (any, error) {
		// A previous flight may have settled between the Get above and joining
		if entry, ok := c.store.Get(key); ok {
			outcome = metrics.CacheHit
			return entry, nil
		}

		outcome = metrics.CacheMiss
		c.logger.Debug("request cache miss", zap.String("cache", c.name), zap.String("key", key))

		v, err := fn(context.WithoutCancel(ctx))
		entry := Entry[V]{Value: v, Err: err}
		if err == nil || c.cacheErr(err) {
			c.store.Set(key, entry)
		}
		return entry, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		c.record(outcome)
		entry := res.Val.(Entry[V])
		return entry.Value, entry.Err
	}
}

// Peek returns a settled entry without computing anything
func (c *RequestCache[V]) Peek(key string) (Entry[V], bool) {
	return c.store.Get(c.normalize(key))
}

// Len returns the number of settled entries
func (c *RequestCache[V]) Len() int {
	return c.store.Len()
}

func (c *RequestCache[V]) record(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(c.name, result).Inc()
	}
}
