package aggregation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	coreagg "github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
	"github.com/jolla3/maziwa-smart-sub000/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const defaultWarmWorkers = 4

// SnapshotPruner drops snapshots computed before cutoff.
type SnapshotPruner interface {
	PruneSnapshots(ctx context.Context, cutoff time.Time) (int64, error)
}

// WarmTarget names a rollup the warmer keeps current for the running period.
type WarmTarget struct {
	Dimension   coreagg.Dimension
	ID          string
	Granularity coreagg.Granularity
}

// DefaultWarmTargets are the global views dashboards open first.
func DefaultWarmTargets() []WarmTarget {
	return []WarmTarget{
		{Dimension: coreagg.DimensionGlobal, Granularity: coreagg.GranularityDay},
		{Dimension: coreagg.DimensionGlobal, Granularity: coreagg.GranularityWeek},
		{Dimension: coreagg.DimensionGlobal, Granularity: coreagg.GranularityMonth},
	}
}

// WarmerOptions configures a Warmer. A zero SnapshotMaxAge disables pruning.
type WarmerOptions struct {
	Interval       time.Duration
	WorkerCount    int
	Targets        []WarmTarget
	Pruner         SnapshotPruner
	SnapshotMaxAge time.Duration
}

// Warmer periodically recomputes the current-period rollups so the first
// read of the day is served from a snapshot.
type Warmer struct {
	engine *Engine
	opts   WarmerOptions
	nowFn  func() time.Time
}

func NewWarmer(engine *Engine, opts WarmerOptions) *Warmer {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = defaultWarmWorkers
	}
	if len(opts.Targets) == 0 {
		opts.Targets = DefaultWarmTargets()
	}
	return &Warmer{engine: engine, opts: opts, nowFn: time.Now}
}

// Start warms once immediately, then on every tick until ctx is cancelled.
func (w *Warmer) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	slog.Info("[Warmer] Starting rollup warmer",
		"interval", w.opts.Interval,
		"targets", len(w.opts.Targets),
		"workers", w.opts.WorkerCount,
	)

	w.runLogged(ctx)
	for {
		select {
		case <-ticker.C:
			w.runLogged(ctx)
		case <-ctx.Done():
			slog.Info("[Warmer] Stopping (context cancelled)")
			return nil
		}
	}
}

func (w *Warmer) runLogged(ctx context.Context) {
	if err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("[Warmer] Warm pass failed", "error", err)
	}
}

// Keys returns the rollup keys for the periods containing now.
func (w *Warmer) Keys(now time.Time) []coreagg.Key {
	loc := w.engine.Location()
	keys := make([]coreagg.Key, 0, len(w.opts.Targets))
	for _, t := range w.opts.Targets {
		start, end := coreagg.PeriodRange(t.Granularity, now, loc)
		keys = append(keys, coreagg.Key{
			Dimension:   t.Dimension,
			ID:          t.ID,
			Granularity: t.Granularity,
			RangeStart:  start,
			RangeEnd:    end,
		})
	}
	return keys
}

// RunOnce computes every target with at most WorkerCount in parallel, then
// prunes old snapshots. The first failure cancels the remaining targets.
func (w *Warmer) RunOnce(ctx context.Context) error {
	now := w.nowFn()
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.WorkerCount)
	for _, key := range w.Keys(now) {
		g.Go(func() error {
			_, err := w.engine.Rollup(gctx, key)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		metrics.WarmerRuns.WithLabelValues("failure").Inc()
		return err
	}

	if w.opts.Pruner != nil && w.opts.SnapshotMaxAge > 0 {
		removed, err := w.opts.Pruner.PruneSnapshots(ctx, now.Add(-w.opts.SnapshotMaxAge))
		if err != nil {
			metrics.WarmerRuns.WithLabelValues("failure").Inc()
			return err
		}
		if removed > 0 {
			slog.Info("[Warmer] Pruned rollup snapshots", "removed", removed)
		}
	}

	metrics.WarmerRuns.WithLabelValues("success").Inc()
	slog.Debug("[Warmer] Warm pass complete", "targets", len(w.opts.Targets), "duration", time.Since(start))
	return nil
}
