package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
)

var (
	// ErrNotFound is returned when no event exists for a slot key.
	ErrNotFound = errors.New("collection event not found")

	// ErrDuplicate is returned when an event for the same (producer_id, slot, day) already exists.
	ErrDuplicate = errors.New("collection event already exists")

	// ErrRevisionConflict is returned when an update's expected revision no longer matches.
	ErrRevisionConflict = errors.New("collection event revision changed")
)

// SlotKey addresses the single event a producer may have per slot and day.
type SlotKey struct {
	ProducerID string
	Slot       slot.Slot
	Day        time.Time
}

// EventFilter scopes event listings. Empty string fields match everything.
// The time range is half-open: Start <= timestamp < End. A zero End means unbounded.
type EventFilter struct {
	ProducerID  string
	CollectorID string
	Slot        slot.Slot
	Start       time.Time
	End         time.Time
}

// Matches applies the filter to one event. Stores that cannot push the filter down use it.
func (f EventFilter) Matches(e *v1.CollectionEvent) bool {
	if f.ProducerID != "" && e.ProducerID != f.ProducerID {
		return false
	}
	if f.CollectorID != "" && e.CollectorID != f.CollectorID {
		return false
	}
	if f.Slot != "" && e.Slot != f.Slot {
		return false
	}
	if !f.Start.IsZero() && e.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && !e.Timestamp.Before(f.End) {
		return false
	}
	return true
}

// DirectoryQuery selects one page of the producer or collector directory.
type DirectoryQuery struct {
	Kind     v1.DirectoryKind
	Filter   string
	Page     int
	PageSize int
}

// EventReader is the read half used by the aggregation engine and the read API.
type EventReader interface {
	// ListEvents returns matching events ordered by timestamp, then revision.
	ListEvents(ctx context.Context, filter EventFilter) ([]*v1.CollectionEvent, error)

	// MaxRevision returns the highest revision among matching events, 0 when none match.
	MaxRevision(ctx context.Context, filter EventFilter) (int64, error)
}

// CollectionStore persists collection events.
type CollectionStore interface {
	EventReader

	ProducerExists(ctx context.Context, producerID string) (bool, error)

	// FindSlotEvent returns ErrNotFound when the producer has no event in that slot.
	FindSlotEvent(ctx context.Context, key SlotKey) (*v1.CollectionEvent, error)

	// InsertEvent assigns event.Revision. Returns ErrDuplicate when the slot is taken.
	InsertEvent(ctx context.Context, event *v1.CollectionEvent) error

	// UpdateEvent writes quantity, collector, timestamp and update count only when the
	// stored revision equals expectedRevision, then assigns event.Revision.
	// Returns ErrRevisionConflict otherwise.
	UpdateEvent(ctx context.Context, event *v1.CollectionEvent, expectedRevision int64) error
}

// DirectoryStore serves paginated producer and collector lists.
type DirectoryStore interface {
	ListDirectory(ctx context.Context, query DirectoryQuery) (v1.Page, error)
}

// SnapshotStore keeps computed rollups keyed by aggregation.Key.Signature.
type SnapshotStore interface {
	// LoadSnapshot returns ErrNotFound when no snapshot exists for signature.
	LoadSnapshot(ctx context.Context, signature string) (*aggregation.Rollup, error)

	// SaveSnapshot stores r unless a snapshot with a higher revision is already stored.
	SaveSnapshot(ctx context.Context, r *aggregation.Rollup) error
}
