package projection

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/cache"
	coreagg "github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/jolla3/maziwa-smart-sub000/internal/ledger"
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid read query")

// RollupEngine computes rollups. *aggregation.Engine satisfies it.
type RollupEngine interface {
	Rollup(ctx context.Context, key coreagg.Key) (*coreagg.Rollup, error)
}

// EventLister reads ledger events. *ledger.Service satisfies it.
type EventLister interface {
	EventsFor(ctx context.Context, scope ledger.Scope, start, end time.Time) (iter.Seq[v1.CollectionEvent], error)
}

// Options configures a Service.
type Options struct {
	TTL          time.Duration
	FetchTimeout time.Duration

	// Location resolves date-only query bounds and default periods.
	Location *time.Location
}

// Service implements the cached read path: rollups and event listings are
// served through stale-while-revalidate caches that the ledger invalidates.
type Service struct {
	engine    RollupEngine
	events    EventLister
	revisions storage.EventReader
	loc       *time.Location

	rollups *cache.Cache[*coreagg.Rollup]
	lists   *cache.Cache[[]v1.CollectionEvent]

	// Every key ever read, by cache key, so invalidation can test coverage.
	// Entries are never removed: a reader may re-cache a key at any time.
	mu         sync.Mutex
	rollupKeys map[string]coreagg.Key
	listKeys   map[string]storage.EventFilter

	nowFn func() time.Time
}

func NewService(engine RollupEngine, events EventLister, revisions storage.EventReader, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	cacheOpts := []cache.Option{cache.WithTTL(opts.TTL), cache.WithFetchTimeout(opts.FetchTimeout)}

	return &Service{
		engine:     engine,
		events:     events,
		revisions:  revisions,
		loc:        opts.Location,
		rollups:    cache.New[*coreagg.Rollup](append(cacheOpts, cache.WithName("rollups"))...),
		lists:      cache.New[[]v1.CollectionEvent](append(cacheOpts, cache.WithName("events"))...),
		rollupKeys: make(map[string]coreagg.Key),
		listKeys:   make(map[string]storage.EventFilter),
		nowFn:      time.Now,
	}
}

// Close stops in-flight fetches of both caches.
func (s *Service) Close() {
	s.rollups.Close()
	s.lists.Close()
}

// Rollup serves key through the rollup cache.
func (s *Service) Rollup(ctx context.Context, key coreagg.Key, opts cache.ReadOptions) (RollupResponse, error) {
	if err := key.Validate(); err != nil {
		return RollupResponse{}, err
	}

	sig := key.Signature()
	s.mu.Lock()
	s.rollupKeys[sig] = key
	s.mu.Unlock()

	e, err := s.rollups.Get(ctx, sig, func(ctx context.Context, _ string) (*coreagg.Rollup, error) {
		return s.engine.Rollup(ctx, key)
	}, opts)
	info, err := cacheInfo(e.State, e.FetchedAt, e.HasValue, err)
	if err != nil {
		return RollupResponse{}, err
	}
	return RollupResponse{Rollup: e.Value, CacheInfo: info}, nil
}

// Events serves the events matching filter through the listing cache.
func (s *Service) Events(ctx context.Context, filter storage.EventFilter, opts cache.ReadOptions) (EventsResponse, error) {
	sig := listKey(filter)
	s.mu.Lock()
	s.listKeys[sig] = filter
	s.mu.Unlock()

	e, err := s.lists.Get(ctx, sig, func(ctx context.Context, _ string) ([]v1.CollectionEvent, error) {
		return s.listEvents(ctx, filter)
	}, opts)
	info, err := cacheInfo(e.State, e.FetchedAt, e.HasValue, err)
	if err != nil {
		return EventsResponse{}, err
	}

	list := v1.EventList{Items: e.Value, TotalCount: len(e.Value)}
	if list.Items == nil {
		list.Items = []v1.CollectionEvent{}
	}
	for _, evt := range list.Items {
		list.MaxRevision = max(list.MaxRevision, evt.Revision)
	}
	return EventsResponse{EventList: list, CacheInfo: info}, nil
}

func (s *Service) listEvents(ctx context.Context, filter storage.EventFilter) ([]v1.CollectionEvent, error) {
	seq, err := s.events.EventsFor(ctx, ledger.Scope{
		ProducerID:  filter.ProducerID,
		CollectorID: filter.CollectorID,
		Slot:        filter.Slot,
	}, filter.Start, filter.End)
	if err != nil {
		return nil, err
	}

	out := []v1.CollectionEvent{}
	for evt := range seq {
		out = append(out, evt)
	}
	return out, nil
}

// Revision is uncached: it is the cheap check remote engines use to decide
// whether their snapshot is still current.
func (s *Service) Revision(ctx context.Context, filter storage.EventFilter) (int64, error) {
	rev, err := s.revisions.MaxRevision(ctx, filter)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: max revision: %w", ledger.ErrTimeout, err)
		}
		return 0, fmt.Errorf("%w: max revision: %w", ledger.ErrUpstreamUnavailable, err)
	}
	return rev, nil
}

// OnRecorded is registered as a ledger observer. It invalidates every cached
// rollup and listing whose scope and range could include evt.
func (s *Service) OnRecorded(evt v1.CollectionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rollups := s.rollups.InvalidateWhere(func(k string) bool {
		key, ok := s.rollupKeys[k]
		return ok && rollupAffected(key, evt)
	})
	lists := s.lists.InvalidateWhere(func(k string) bool {
		filter, ok := s.listKeys[k]
		return ok && listAffected(filter, evt)
	})

	if rollups+lists > 0 {
		slog.Debug("[Projection] Invalidated cached reads",
			"producer_id", evt.ProducerID,
			"revision", evt.Revision,
			"rollups", rollups,
			"listings", lists)
	}
}

// dayOverlaps reports whether evt's collection day intersects [start, end).
// Corrections may move the timestamp within the day, so the whole day counts.
func dayOverlaps(start, end time.Time, evt v1.CollectionEvent) bool {
	dayEnd := evt.Day.AddDate(0, 0, 1)
	if !end.IsZero() && !evt.Day.Before(end) {
		return false
	}
	if !start.IsZero() && !dayEnd.After(start) {
		return false
	}
	return true
}

func rollupAffected(key coreagg.Key, evt v1.CollectionEvent) bool {
	if !dayOverlaps(key.RangeStart, key.RangeEnd, evt) {
		return false
	}
	switch key.Dimension {
	case coreagg.DimensionProducer:
		return evt.ProducerID == key.ID
	case coreagg.DimensionCollector:
		// An update may have replaced the collector, so any collector rollup may change.
		return true
	case coreagg.DimensionSlot:
		return string(evt.Slot) == key.ID
	}
	return true
}

func listAffected(f storage.EventFilter, evt v1.CollectionEvent) bool {
	if f.ProducerID != "" && f.ProducerID != evt.ProducerID {
		return false
	}
	if f.Slot != "" && f.Slot != evt.Slot {
		return false
	}
	return dayOverlaps(f.Start, f.End, evt)
}

func listKey(f storage.EventFilter) string {
	bound := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	return strings.Join([]string{"events", f.ProducerID, f.CollectorID, string(f.Slot), bound(f.Start), bound(f.End)}, ":")
}

// cacheInfo turns a cache read into response metadata. A failed forced refresh
// that still has a value is served stale with the failure attached.
func cacheInfo(state cache.State, fetchedAt time.Time, hasValue bool, err error) (CacheInfo, error) {
	info := CacheInfo{CacheState: state, FetchedAt: fetchedAt, Stale: state == cache.StateStale}
	if err == nil {
		return info, nil
	}
	if hasValue && errors.Is(err, cache.ErrFetchFailed) {
		info.CacheState = cache.StateStale
		info.Stale = true
		info.RefreshError = err.Error()
		return info, nil
	}
	return CacheInfo{}, err
}

// parseBound accepts RFC 3339 timestamps or YYYY-MM-DD dates in loc.
func parseBound(name, s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339 or YYYY-MM-DD, got %q", ErrInvalidQuery, name, s)
}

// rollupKey builds a key from query parameters. With no start the current
// period of the granularity is used; with no end the period containing start.
func (s *Service) rollupKey(q rollupQuery) (coreagg.Key, error) {
	dim, err := coreagg.ParseDimension(q.Dimension)
	if err != nil {
		return coreagg.Key{}, err
	}
	gran, err := coreagg.ParseGranularity(q.Granularity)
	if err != nil {
		return coreagg.Key{}, err
	}
	start, err := parseBound("start", q.Start, s.loc)
	if err != nil {
		return coreagg.Key{}, err
	}
	end, err := parseBound("end", q.End, s.loc)
	if err != nil {
		return coreagg.Key{}, err
	}

	switch {
	case start.IsZero() && !end.IsZero():
		return coreagg.Key{}, fmt.Errorf("%w: end requires start", ErrInvalidQuery)
	case start.IsZero():
		start, end = coreagg.PeriodRange(gran, s.nowFn(), s.loc)
	case end.IsZero():
		_, end = coreagg.PeriodRange(gran, start, s.loc)
	}

	return coreagg.Key{Dimension: dim, ID: q.ID, Granularity: gran, RangeStart: start, RangeEnd: end}, nil
}

func (s *Service) eventFilter(q eventsQuery) (storage.EventFilter, error) {
	f := storage.EventFilter{ProducerID: q.ProducerID, CollectorID: q.CollectorID}
	if q.Slot != "" {
		sl, err := slot.Parse(q.Slot)
		if err != nil {
			return f, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		f.Slot = sl
	}

	var err error
	if f.Start, err = parseBound("start", q.Start, s.loc); err != nil {
		return f, err
	}
	if f.End, err = parseBound("end", q.End, s.loc); err != nil {
		return f, err
	}
	if !f.Start.IsZero() && !f.End.IsZero() && !f.End.After(f.Start) {
		return f, fmt.Errorf("%w: end must be after start", ErrInvalidQuery)
	}
	return f, nil
}
