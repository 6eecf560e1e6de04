// Package cache is a generic stale-while-revalidate cache keyed by query
// signature. Reads never block: they return whatever is cached and start at
// most one background fetch per key. Observers registered for a key receive
// every successful refresh.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jolla3/maziwa-smart-sub000/internal/metrics"
)

// State describes how displayable an entry is.
type State string

const (
	StateFresh      State = "fresh"
	StateStale      State = "stale"
	StateRefreshing State = "refreshing"
	StateInvalid    State = "invalid"
)

const (
	DefaultTTL          = 30 * time.Second
	DefaultFetchTimeout = 10 * time.Second
)

var (
	// ErrFetchFailed wraps the fetch error reported to interactive callers.
	ErrFetchFailed = errors.New("cache fetch failed")

	// ErrInvalidated is returned by Pending.Wait when the key was invalidated
	// while its fetch was in flight. The result of that fetch is discarded.
	ErrInvalidated = errors.New("cache entry invalidated")

	ErrClosed = errors.New("cache closed")
)

// Entry is a point-in-time copy of one cache slot.
type Entry[T any] struct {
	Key       string
	Value     T
	HasValue  bool
	FetchedAt time.Time
	State     State
}

// FetchFunc loads the authoritative value for key. ctx is cancelled on
// timeout, on invalidation, or when every interested caller gave up.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// ReadOptions tune a single read. A zero TTL uses the cache default.
type ReadOptions struct {
	TTL time.Duration

	// AllowStale lets Get return an expired value instead of waiting.
	AllowStale bool

	// Force starts a fetch even for a fresh entry and surfaces its failure.
	Force bool
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	name         string
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
}

func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fetchTimeout = d
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type slot[T any] struct {
	value     T
	hasValue  bool
	fetchedAt time.Time
	state     State
}

type flight[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	refs   int

	// Written once before done is closed.
	entry Entry[T]
	err   error
}

type observer[T any] struct {
	fn          func(Entry[T])
	mu          sync.Mutex
	lastSeen    uint64
	lastFetched time.Time
}

// Cache is safe for concurrent use. The entry map and the in-flight map are
// only mutated under mu, which keeps the one-fetch-per-key check atomic.
type Cache[T any] struct {
	opts options

	mu        sync.Mutex
	entries   map[string]*slot[T]
	flights   map[string]*flight[T]
	observers map[string]map[int]*observer[T]
	nextObsID int
	closed    bool

	// version orders successful refreshes across the whole cache. It survives
	// Invalidate and Clear so observers never mistake a refetch for a replay.
	version uint64

	root       context.Context
	cancelRoot context.CancelFunc
	wg         sync.WaitGroup
}

// New creates an empty cache.
func New[T any](opts ...Option) *Cache[T] {
	o := options{
		name:         "default",
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	root, cancel := context.WithCancel(context.Background())
	return &Cache[T]{
		opts:       o,
		entries:    make(map[string]*slot[T]),
		flights:    make(map[string]*flight[T]),
		observers:  make(map[string]map[int]*observer[T]),
		root:       root,
		cancelRoot: cancel,
	}
}

// Name labels the cache in metrics and logs.
func (c *Cache[T]) Name() string {
	return c.opts.name
}

// Read returns the current entry for key without blocking. When the entry is
// absent, invalid or older than the TTL (or opts.Force is set) it also returns
// a Pending for the fetch that refreshes it; a fetch already in flight for
// key is joined rather than duplicated. A nil Pending means the entry is fresh.
func (c *Cache[T]) Read(key string, fetch FetchFunc[T], opts ReadOptions) (Entry[T], *Pending[T]) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.opts.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Entry[T]{Key: key, State: StateInvalid}, failedPending[T](ErrClosed)
	}

	s, ok := c.entries[key]
	if !ok || !s.hasValue {
		if !ok {
			s = &slot[T]{}
			c.entries[key] = s
		}
		s.state = StateRefreshing
		p := c.startOrJoinLocked(key, fetch)
		e := c.snapshotLocked(key, s)
		metrics.CacheReads.WithLabelValues(c.opts.name, string(e.State)).Inc()
		return e, p
	}

	expired := c.opts.now().Sub(s.fetchedAt) >= ttl
	if expired {
		s.state = StateStale
	}
	e := c.snapshotLocked(key, s)
	metrics.CacheReads.WithLabelValues(c.opts.name, string(e.State)).Inc()

	if !expired && !opts.Force {
		return e, nil
	}
	return e, c.startOrJoinLocked(key, fetch)
}

// Peek returns the cached entry for key without triggering a fetch.
func (c *Cache[T]) Peek(key string) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.entries[key]
	if !ok {
		return Entry[T]{Key: key, State: StateInvalid}, false
	}
	return c.snapshotLocked(key, s), true
}

// Get is the blocking form of Read used by request handlers. It returns as
// soon as a displayable value exists: a fresh one, or a stale one when
// opts.AllowStale is set. Otherwise it waits for the fetch. Fetch failures
// fall back to the stale value unless opts.Force is set, in which case the
// failure is returned wrapped in ErrFetchFailed alongside the stale entry.
func (c *Cache[T]) Get(ctx context.Context, key string, fetch FetchFunc[T], opts ReadOptions) (Entry[T], error) {
	for {
		e, p := c.Read(key, fetch, opts)
		if p == nil {
			return e, nil
		}
		if e.HasValue && opts.AllowStale && !opts.Force {
			return e, nil
		}

		fetched, err := p.Wait(ctx)
		switch {
		case err == nil:
			return fetched, nil
		case errors.Is(err, ErrInvalidated):
			// Invalidated mid-flight: read again so the caller sees post-invalidation data.
			continue
		case ctx.Err() != nil:
			p.Cancel()
			return e, ctx.Err()
		case opts.Force || !e.HasValue:
			return e, err
		default:
			e.State = StateStale
			return e, nil
		}
	}
}

// Subscribe registers fn for successful refreshes of key. fn is never called
// with a FetchedAt older than one it has already seen.
func (c *Cache[T]) Subscribe(key string, fn func(Entry[T])) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextObsID
	c.nextObsID++
	if c.observers[key] == nil {
		c.observers[key] = make(map[int]*observer[T])
	}
	c.observers[key][id] = &observer[T]{fn: fn}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers[key], id)
		if len(c.observers[key]) == 0 {
			delete(c.observers, key)
		}
	}
}

// Invalidate makes the next read of key behave as if nothing were cached.
// A fetch in flight for key is cancelled and its result discarded.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked(key)
}

// InvalidateWhere invalidates every cached or in-flight key matching pred.
func (c *Cache[T]) InvalidateWhere(pred func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.entries {
		if pred(key) {
			c.invalidateLocked(key)
			n++
		}
	}
	for key := range c.flights {
		if pred(key) {
			c.invalidateLocked(key)
		}
	}
	return n
}

// Clear drops every entry and cancels every fetch. Observers stay registered.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.flights {
		c.abandonLocked(key)
	}
	c.entries = make(map[string]*slot[T])
}

// Close cancels in-flight fetches and waits for their goroutines. Reads after
// Close fail with ErrClosed.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancelRoot()
	for key := range c.flights {
		c.abandonLocked(key)
	}
	c.entries = make(map[string]*slot[T])
	c.mu.Unlock()

	c.wg.Wait()
}

// Len reports the number of cached keys.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[T]) invalidateLocked(key string) {
	c.abandonLocked(key)
	delete(c.entries, key)
}

// abandonLocked detaches the flight for key so its completion is discarded.
func (c *Cache[T]) abandonLocked(key string) {
	f, ok := c.flights[key]
	if !ok {
		return
	}
	delete(c.flights, key)
	f.cancel()
}

func (c *Cache[T]) startOrJoinLocked(key string, fetch FetchFunc[T]) *Pending[T] {
	if f, ok := c.flights[key]; ok {
		f.refs++
		return &Pending[T]{c: c, key: key, f: f}
	}

	ctx, cancel := context.WithTimeout(c.root, c.opts.fetchTimeout)
	f := &flight[T]{ctx: ctx, cancel: cancel, done: make(chan struct{}), refs: 1}
	c.flights[key] = f
	metrics.CacheInflight.WithLabelValues(c.opts.name).Inc()

	c.wg.Add(1)
	go c.run(key, f, fetch)
	return &Pending[T]{c: c, key: key, f: f}
}

func (c *Cache[T]) run(key string, f *flight[T], fetch FetchFunc[T]) {
	defer c.wg.Done()
	defer metrics.CacheInflight.WithLabelValues(c.opts.name).Dec()
	defer f.cancel()

	value, err := fetch(f.ctx, key)

	c.mu.Lock()
	if c.flights[key] != f {
		c.mu.Unlock()
		metrics.CacheFetches.WithLabelValues(c.opts.name, "discarded").Inc()
		f.err = ErrInvalidated
		close(f.done)
		return
	}
	delete(c.flights, key)

	s, ok := c.entries[key]
	if !ok {
		s = &slot[T]{}
		c.entries[key] = s
	}

	if err != nil {
		if s.hasValue {
			s.state = StateStale
		} else {
			s.state = StateInvalid
		}
		f.entry = c.snapshotLocked(key, s)
		f.err = fmt.Errorf("%w: %s: %w", ErrFetchFailed, key, err)
		c.mu.Unlock()

		metrics.CacheFetches.WithLabelValues(c.opts.name, "failure").Inc()
		slog.Warn("[Cache] Refresh failed, keeping previous value",
			"cache", c.opts.name, "key", key, "has_value", s.hasValue, "error", err)
		close(f.done)
		return
	}

	fetchedAt := c.opts.now()
	if fetchedAt.Before(s.fetchedAt) {
		fetchedAt = s.fetchedAt
	}
	s.value = value
	s.hasValue = true
	s.fetchedAt = fetchedAt
	s.state = StateFresh
	c.version++

	f.entry = c.snapshotLocked(key, s)
	version := c.version
	observers := make([]*observer[T], 0, len(c.observers[key]))
	for _, o := range c.observers[key] {
		observers = append(observers, o)
	}
	c.mu.Unlock()

	metrics.CacheFetches.WithLabelValues(c.opts.name, "success").Inc()
	for _, o := range observers {
		o.deliver(version, f.entry)
	}
	close(f.done)
}

func (o *observer[T]) deliver(version uint64, e Entry[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if version <= o.lastSeen {
		return
	}
	o.lastSeen = version
	// After an invalidation the slot restarts; keep FetchedAt monotonic per observer.
	if e.FetchedAt.Before(o.lastFetched) {
		e.FetchedAt = o.lastFetched
	}
	o.lastFetched = e.FetchedAt
	o.fn(e)
}

func (c *Cache[T]) snapshotLocked(key string, s *slot[T]) Entry[T] {
	return Entry[T]{
		Key:       key,
		Value:     s.value,
		HasValue:  s.hasValue,
		FetchedAt: s.fetchedAt,
		State:     s.state,
	}
}

// release drops one handle's interest in f. The fetch is cancelled once no
// handle remains interested.
func (c *Cache[T]) release(key string, f *flight[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.refs--
	if f.refs > 0 {
		return
	}
	if c.flights[key] == f {
		delete(c.flights, key)
		if s, ok := c.entries[key]; ok && !s.hasValue {
			delete(c.entries, key)
		}
	}
	f.cancel()
}
