// Package cache memoizes expensive derived values (feature matrices, embeddings) by key.
//
// A Cache keeps decoded values in memory and returns the same pointer for every hit, so
// repeated queries share one result. WithCapacity bounds the memory tier; the least
// recently used entry is evicted first. Concurrent misses on one key run the compute
// function once. An optional Backend (Redis) acts as a second, shared tier: values are
// stored there as JSON and survive process restarts.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Backend is a shared byte store behind the in-memory tier.
type Backend interface {
	// Get returns ok=false on a miss; err is reserved for backend failures.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Recorder receives cache events. The metrics package implements it.
type Recorder interface {
	CacheHit(cache, tier string)
	CacheMiss(cache string)
}

// Tiers reported to a Recorder.
const (
	TierMemory  = "memory"
	TierBackend = "backend"
)

type options struct {
	capacity int
	backend  Backend
	ttl      time.Duration
	logger   zerolog.Logger
	recorder Recorder
}

// Option configures a Cache.
type Option func(*options)

// WithBackend adds a second tier. ttl bounds how long entries live there; zero means no expiry.
func WithBackend(backend Backend, ttl time.Duration) Option {
	return func(o *options) {
		o.backend = backend
		o.ttl = ttl
	}
}

// WithCapacity keeps at most n entries in memory. n <= 0 means unbounded.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithLogger sets the logger used for backend failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRecorder reports hits and misses.
func WithRecorder(recorder Recorder) Option {
	return func(o *options) { o.recorder = recorder }
}

// Cache is a keyed memo of *V values. The zero value is not usable; call New.
type Cache[V any] struct {
	name string
	opts options

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is most recently used
	epoch   uint64     // bumped by Purge so in-flight computations don't repopulate

	group singleflight.Group
}

// New returns an empty cache. name labels log lines and metrics.
func New[V any](name string, opts ...Option) *Cache[V] {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		name:    name,
		opts:    o,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

type entry[V any] struct {
	key   string
	value *V
}

// Get returns the value stored under key, computing it on a miss. Backend failures are
// logged and treated as misses; compute errors are returned and nothing is stored.
func (c *Cache[V]) Get(ctx context.Context, key string, compute func(context.Context) (*V, error)) (*V, error) {
	if value, ok := c.lookup(key); ok {
		c.recordHit(TierMemory)
		return value, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if value, ok := c.lookup(key); ok {
			c.recordHit(TierMemory)
			return value, nil
		}
		epoch := c.currentEpoch()

		if value, ok := c.fromBackend(ctx, key); ok {
			c.recordHit(TierBackend)
			return c.store(key, value, epoch), nil
		}

		c.recordMiss()
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.toBackend(ctx, key, value)
		return c.store(key, value, epoch), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*V), nil
}

// Peek returns a cached value without computing it or touching its recency.
func (c *Cache[V]) Peek(key string) (*V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return elem.Value.(*entry[V]).value, true
}

// Purge drops every in-memory entry. Backend entries are left alone: their keys embed
// the dataset version, so stale ones are never requested again and expire by TTL.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.epoch++
}

// Len returns the number of in-memory entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// lookup marks a hit as most recently used.
func (c *Cache[V]) lookup(key string) (*V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[V]).value, true
}

func (c *Cache[V]) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// store keeps value unless a Purge happened since the computation started. An entry
// stored concurrently under the same key wins, so callers always share one pointer.
func (c *Cache[V]) store(key string, value *V, epoch uint64) *V {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry[V]).value
	}
	if c.epoch != epoch {
		return value
	}
	c.entries[key] = c.order.PushFront(&entry[V]{key: key, value: value})
	for c.opts.capacity > 0 && c.order.Len() > c.opts.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		evicted := oldest.Value.(*entry[V]).key
		delete(c.entries, evicted)
		c.opts.logger.Debug().Str("cache", c.name).Str("key", evicted).Msg("evicted")
	}
	return value
}

func (c *Cache[V]) fromBackend(ctx context.Context, key string) (*V, bool) {
	if c.opts.backend == nil {
		return nil, false
	}
	data, ok, err := c.opts.backend.Get(ctx, c.backendKey(key))
	if err != nil {
		c.opts.logger.Warn().Err(err).Str("cache", c.name).Str("key", key).Msg("cache backend get failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	value := new(V)
	if err := json.Unmarshal(data, value); err != nil {
		c.opts.logger.Warn().Err(err).Str("cache", c.name).Str("key", key).Msg("discarding undecodable cache entry")
		return nil, false
	}
	return value, true
}

func (c *Cache[V]) toBackend(ctx context.Context, key string, value *V) {
	if c.opts.backend == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.opts.logger.Warn().Err(err).Str("cache", c.name).Str("key", key).Msg("encoding cache entry")
		return
	}
	if err := c.opts.backend.Set(ctx, c.backendKey(key), data, c.opts.ttl); err != nil {
		c.opts.logger.Warn().Err(err).Str("cache", c.name).Str("key", key).Msg("cache backend set failed")
	}
}

func (c *Cache[V]) backendKey(key string) string {
	return c.name + ":" + key
}

func (c *Cache[V]) recordHit(tier string) {
	if c.opts.recorder != nil {
		c.opts.recorder.CacheHit(c.name, tier)
	}
}

func (c *Cache[V]) recordMiss() {
	if c.opts.recorder != nil {
		c.opts.recorder.CacheMiss(c.name)
	}
}
