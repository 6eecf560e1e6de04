package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
)

// Snapshots is an in-memory storage.SnapshotStore.
type Snapshots struct {
	mu    sync.RWMutex
	byKey map[string]*aggregation.Rollup
}

// NewSnapshots creates an empty snapshot store.
func NewSnapshots() *Snapshots {
	return &Snapshots{byKey: make(map[string]*aggregation.Rollup)}
}

func (s *Snapshots) LoadSnapshot(_ context.Context, signature string) (*aggregation.Rollup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byKey[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r, nil
}

// SaveSnapshot keeps the stored snapshot when it already carries a higher source revision.
// Stored rollups are treated as immutable by callers.
func (s *Snapshots) SaveSnapshot(_ context.Context, r *aggregation.Rollup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig := r.Key.Signature()
	if existing, ok := s.byKey[sig]; ok && existing.SourceRevision > r.SourceRevision {
		return nil
	}
	s.byKey[sig] = r
	return nil
}

// PruneSnapshots drops snapshots computed before cutoff.
func (s *Snapshots) PruneSnapshots(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for sig, r := range s.byKey {
		if r.ComputedAt.Before(cutoff) {
			delete(s.byKey, sig)
			n++
		}
	}
	return n, nil
}
