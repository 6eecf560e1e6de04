package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	coreagg "github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/jolla3/maziwa-smart-sub000/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const DefaultTimeout = 10 * time.Second

var (
	// ErrUpstreamUnavailable is matched by errors.Is on an *Error of that kind.
	ErrUpstreamUnavailable = errors.New("event source unavailable")
	ErrTimeout             = errors.New("rollup timed out")
)

// ErrorKind classifies a rollup failure. Both kinds are retryable through the cache.
type ErrorKind string

const (
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindTimeout             ErrorKind = "timeout"
)

// Error is returned by Engine.Rollup for source failures.
type Error struct {
	Kind ErrorKind
	Key  coreagg.Key
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rollup %s: %s: %v", e.Key.Signature(), e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrUpstreamUnavailable:
		return e.Kind == KindUpstreamUnavailable
	}
	return false
}

// EventSource is what the engine reads. The ledger's store and the upstream
// client both satisfy it.
type EventSource interface {
	storage.EventReader
}

// Options configures an Engine.
type Options struct {
	Timeout  time.Duration
	Location *time.Location
}

// Engine computes rollups and reuses snapshots whose revision is still current.
type Engine struct {
	source    EventSource
	snapshots storage.SnapshotStore
	timeout   time.Duration
	loc       *time.Location
	group     singleflight.Group
	nowFn     func() time.Time
}

// NewEngine creates an engine. snapshots may be nil, in which case every
// request folds from the source (concurrent identical requests still share one fold).
func NewEngine(source EventSource, snapshots storage.SnapshotStore, opts Options) *Engine {
	if source == nil {
		panic("aggregation: source must not be nil")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Engine{
		source:    source,
		snapshots: snapshots,
		timeout:   opts.Timeout,
		loc:       opts.Location,
		nowFn:     time.Now,
	}
}

// Location is the zone buckets are cut in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Rollup returns the rollup for key. A malformed key returns an error wrapping
// coreagg.ErrInvalidKey; source failures return *Error. An empty range is a
// zero-valued rollup, not an error.
func (e *Engine) Rollup(ctx context.Context, key coreagg.Key) (*coreagg.Rollup, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	filter := FilterFor(key)
	revision, err := e.source.MaxRevision(ctx, ValidityFilter(key, e.loc))
	if err != nil {
		metrics.RollupRequests.WithLabelValues("error").Inc()
		return nil, e.wrap(ctx, key, err)
	}

	if snap := e.loadSnapshot(ctx, key, revision); snap != nil {
		metrics.RollupRequests.WithLabelValues("snapshot").Inc()
		return snap, nil
	}

	// The fold outlives a caller that gives up so joined callers still get a
	// result; it stays bounded by the engine timeout.
	flightKey := key.Signature() + "@" + strconv.FormatInt(revision, 10)
	ch := e.group.DoChan(flightKey, func() (interface{}, error) {
		foldCtx, foldCancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
		defer foldCancel()
		return e.compute(foldCtx, key, filter, revision)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			metrics.RollupRequests.WithLabelValues("error").Inc()
			return nil, e.wrap(ctx, key, res.Err)
		}
		if res.Shared {
			metrics.RollupRequests.WithLabelValues("shared").Inc()
		} else {
			metrics.RollupRequests.WithLabelValues("computed").Inc()
		}
		return res.Val.(*coreagg.Rollup), nil
	case <-ctx.Done():
		metrics.RollupRequests.WithLabelValues("error").Inc()
		return nil, e.wrap(ctx, key, ctx.Err())
	}
}

func (e *Engine) compute(ctx context.Context, key coreagg.Key, filter storage.EventFilter, sourceRevision int64) (*coreagg.Rollup, error) {
	start := time.Now()
	events, err := e.source.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	r := coreagg.Fold(key, coreagg.Values(events), e.loc)
	r.SourceRevision = sourceRevision
	r.ComputedAt = e.nowFn().UTC()
	metrics.RollupComputeDuration.WithLabelValues(string(key.Granularity)).Observe(time.Since(start).Seconds())

	slog.Debug("[Engine] Computed rollup",
		"key", key.Signature(),
		"events", r.CountEvents,
		"revision", r.Revision,
		"duration", time.Since(start))

	if e.snapshots != nil {
		if err := e.snapshots.SaveSnapshot(ctx, r); err != nil {
			slog.Warn("[Engine] Failed to save rollup snapshot", "key", key.Signature(), "error", err)
		}
	}
	return r, nil
}

// loadSnapshot returns the stored rollup only if its validity scope is still at revision.
func (e *Engine) loadSnapshot(ctx context.Context, key coreagg.Key, revision int64) *coreagg.Rollup {
	if e.snapshots == nil {
		return nil
	}
	snap, err := e.snapshots.LoadSnapshot(ctx, key.Signature())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		slog.Warn("[Engine] Failed to load rollup snapshot", "key", key.Signature(), "error", err)
		return nil
	case snap.SourceRevision != revision:
		return nil
	}
	return snap
}

func (e *Engine) wrap(ctx context.Context, key coreagg.Key, err error) error {
	kind := KindUpstreamUnavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Key: key, Err: err}
}

// ValidityFilter selects a superset of key's events that a correction cannot
// move an event out of. A correction keeps producer, slot and day but may
// change the collector and the time of day, so the collector is dropped and
// the range is widened to whole local days.
func ValidityFilter(key coreagg.Key, loc *time.Location) storage.EventFilter {
	f := FilterFor(key)
	f.CollectorID = ""
	f.Start = coreagg.StartOfDay(key.RangeStart, loc)
	if end := coreagg.StartOfDay(key.RangeEnd, loc); end.Before(key.RangeEnd) {
		f.End = end.AddDate(0, 0, 1)
	}
	return f
}

// FilterFor translates a rollup key into the event filter that selects its events.
func FilterFor(key coreagg.Key) storage.EventFilter {
	f := storage.EventFilter{Start: key.RangeStart, End: key.RangeEnd}
	switch key.Dimension {
	case coreagg.DimensionProducer:
		f.ProducerID = key.ID
	case coreagg.DimensionCollector:
		f.CollectorID = key.ID
	case coreagg.DimensionSlot:
		f.Slot = slot.Slot(key.ID)
	}
	return f
}
