package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/partition"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/jolla3/maziwa-smart-sub000/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrUpstreamUnavailable wraps store failures that are not business rejections.
	ErrUpstreamUnavailable = errors.New("ledger store unavailable")

	// ErrTimeout is returned when a write does not finish within the write timeout.
	ErrTimeout = errors.New("ledger write timed out")
)

const (
	DefaultMaxUpdatesPerSlot = 1
	DefaultWriteTimeout      = 10 * time.Second
)

// RecordCommand is one record-or-update request. Now decides the slot and day.
type RecordCommand struct {
	ProducerID  string
	CollectorID string
	Quantity    decimal.Decimal
	Now         time.Time
}

// Scope narrows EventsFor to a producer, a collector or a slot. The zero Scope means all events.
type Scope struct {
	ProducerID  string
	CollectorID string
	Slot        slot.Slot
}

// Observer is notified after every successful create or update, in registration order.
type Observer func(evt v1.CollectionEvent)

// Options configures a Service.
type Options struct {
	MaxUpdatesPerSlot int
	WriteTimeout      time.Duration
	MaxBodySizeMB     int
}

// Service is the only component that writes collection events.
type Service struct {
	store            storage.CollectionStore
	classifier       *slot.Classifier
	maxUpdates       int
	writeTimeout     time.Duration
	maxBodySizeBytes int

	locks partition.Locks

	obsMu     sync.RWMutex
	observers []observerEntry
	nextObsID int

	nowFn func() time.Time
	newID func() string
}

func NewService(store storage.CollectionStore, classifier *slot.Classifier, opts Options) *Service {
	if store == nil {
		panic("ledger: store must not be nil")
	}
	if classifier == nil {
		panic("ledger: classifier must not be nil")
	}
	if opts.MaxUpdatesPerSlot < 0 {
		opts.MaxUpdatesPerSlot = DefaultMaxUpdatesPerSlot
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.MaxBodySizeMB <= 0 {
		opts.MaxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            store,
		classifier:       classifier,
		maxUpdates:       opts.MaxUpdatesPerSlot,
		writeTimeout:     opts.WriteTimeout,
		maxBodySizeBytes: opts.MaxBodySizeMB * 1024 * 1024,
		nowFn:            time.Now,
		newID:            uuid.NewString,
	}
}

// RegisterRoutes registers the ledger routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/collection-events", s.RecordHandler)
}

// MaxUpdatesPerSlot is the number of corrections allowed after creation.
func (s *Service) MaxUpdatesPerSlot() int {
	return s.maxUpdates
}

// Classifier returns the slot classifier used for every write.
func (s *Service) Classifier() *slot.Classifier {
	return s.classifier
}

type observerEntry struct {
	id int
	fn Observer
}

// Subscribe registers o and returns a func that removes it.
func (s *Service) Subscribe(o Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers = append(s.observers, observerEntry{id: id, fn: o})
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		s.observers = slices.DeleteFunc(s.observers, func(e observerEntry) bool { return e.id == id })
	}
}

func (s *Service) notify(evt v1.CollectionEvent) {
	s.obsMu.RLock()
	observers := slices.Clone(s.observers)
	s.obsMu.RUnlock()

	for _, o := range observers {
		o.fn(evt)
	}
}

// RecordOrUpdate creates the event for the command's (producer, slot, day), or
// corrects it while corrections remain. Rule violations come back as a rejected
// RecordResult with a nil error. Errors are reserved for infrastructure failures
// and wrap ErrUpstreamUnavailable or ErrTimeout.
func (s *Service) RecordOrUpdate(ctx context.Context, cmd RecordCommand) (v1.RecordResult, error) {
	start := time.Now()
	res, err := s.recordOrUpdate(ctx, cmd)
	metrics.LedgerWriteDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		metrics.LedgerWrites.WithLabelValues("error", "").Inc()
	case res.Rejected():
		metrics.LedgerWrites.WithLabelValues(string(res.Outcome), string(res.Rejection.Reason)).Inc()
	default:
		metrics.LedgerWrites.WithLabelValues(string(res.Outcome), "").Inc()
		s.notify(*res.Event)
	}
	return res, err
}

func (s *Service) recordOrUpdate(ctx context.Context, cmd RecordCommand) (v1.RecordResult, error) {
	if cmd.Now.IsZero() {
		cmd.Now = s.nowFn()
	}
	key := storage.SlotKey{
		ProducerID: cmd.ProducerID,
		Slot:       s.classifier.Classify(cmd.Now),
		Day:        s.classifier.Day(cmd.Now),
	}

	if !cmd.Quantity.IsPositive() {
		return s.reject(v1.RejectedInvalidQuantity, key, nil,
			fmt.Sprintf("quantity must be greater than zero, got %s", cmd.Quantity.String())), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	exists, err := s.store.ProducerExists(ctx, cmd.ProducerID)
	if err != nil {
		return v1.RecordResult{}, s.wrapStoreErr(ctx, "check producer", err)
	}
	if !exists {
		return s.reject(v1.RejectedUnknownProducer, key, nil,
			fmt.Sprintf("producer %q is not registered", cmd.ProducerID)), nil
	}

	unlock := s.locks.Lock(lockKey(key))
	defer unlock()

	current, err := s.store.FindSlotEvent(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return s.create(ctx, key, cmd)
	case err != nil:
		return v1.RecordResult{}, s.wrapStoreErr(ctx, "find slot event", err)
	}

	if current.UpdateCount >= s.maxUpdates {
		return s.reject(v1.RejectedUpdateLimitExceeded, key, current, s.limitMessage(current)), nil
	}
	return s.update(ctx, key, cmd, current)
}

func (s *Service) create(ctx context.Context, key storage.SlotKey, cmd RecordCommand) (v1.RecordResult, error) {
	now := s.nowFn().UTC()
	evt := &v1.CollectionEvent{
		ID:          s.newID(),
		ProducerID:  cmd.ProducerID,
		CollectorID: cmd.CollectorID,
		Timestamp:   cmd.Now,
		Day:         key.Day,
		Slot:        key.Slot,
		Quantity:    cmd.Quantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.InsertEvent(ctx, evt)
	if errors.Is(err, storage.ErrDuplicate) {
		// Another process created the slot between our read and insert.
		return s.lostRace(ctx, key)
	}
	if err != nil {
		return v1.RecordResult{}, s.wrapStoreErr(ctx, "insert event", err)
	}

	slog.Info("[Ledger] Recorded collection",
		"producer_id", evt.ProducerID,
		"collector_id", evt.CollectorID,
		"slot", evt.Slot,
		"day", evt.Day.Format(time.DateOnly),
		"quantity", evt.Quantity.String(),
		"revision", evt.Revision)

	return v1.RecordResult{
		Outcome:          v1.OutcomeCreated,
		Event:            evt,
		UpdatesRemaining: s.maxUpdates,
	}, nil
}

func (s *Service) update(ctx context.Context, key storage.SlotKey, cmd RecordCommand, current *v1.CollectionEvent) (v1.RecordResult, error) {
	previous := current.Quantity
	expected := current.Revision

	next := *current
	next.Quantity = cmd.Quantity
	next.Timestamp = cmd.Now
	next.UpdateCount = current.UpdateCount + 1
	next.UpdatedAt = s.nowFn().UTC()
	if cmd.CollectorID != "" {
		next.CollectorID = cmd.CollectorID
	}

	err := s.store.UpdateEvent(ctx, &next, expected)
	if errors.Is(err, storage.ErrRevisionConflict) {
		return s.lostRace(ctx, key)
	}
	if err != nil {
		return v1.RecordResult{}, s.wrapStoreErr(ctx, "update event", err)
	}

	delta := next.Quantity.Sub(previous)
	slog.Info("[Ledger] Corrected collection",
		"producer_id", next.ProducerID,
		"slot", next.Slot,
		"day", next.Day.Format(time.DateOnly),
		"previous_quantity", previous.String(),
		"quantity", next.Quantity.String(),
		"update_count", next.UpdateCount,
		"revision", next.Revision)

	return v1.RecordResult{
		Outcome:          v1.OutcomeUpdated,
		Event:            &next,
		PreviousQuantity: &previous,
		Delta:            &delta,
		UpdatesRemaining: s.maxUpdates - next.UpdateCount,
	}, nil
}

// lostRace reloads the slot after a create or update lost to another writer.
func (s *Service) lostRace(ctx context.Context, key storage.SlotKey) (v1.RecordResult, error) {
	winner, err := s.store.FindSlotEvent(ctx, key)
	if err != nil {
		return v1.RecordResult{}, s.wrapStoreErr(ctx, "reload slot event", err)
	}
	if winner.UpdateCount >= s.maxUpdates {
		return s.reject(v1.RejectedUpdateLimitExceeded, key, winner, s.limitMessage(winner)), nil
	}
	return s.reject(v1.RejectedConcurrentModification, key, winner,
		fmt.Sprintf("%s collection for %s was changed by another writer; now %s",
			key.Slot, key.ProducerID, winner.Quantity.String())), nil
}

func (s *Service) reject(reason v1.RejectedReason, key storage.SlotKey, current *v1.CollectionEvent, msg string) v1.RecordResult {
	rej := &v1.Rejection{
		Reason:          reason,
		Message:         msg,
		ProducerID:      key.ProducerID,
		Slot:            key.Slot,
		Day:             key.Day,
		CurrentQuantity: decimal.Zero,
	}
	if current != nil {
		rej.CurrentQuantity = current.Quantity
		rej.UpdatesUsed = current.UpdateCount
		rej.UpdatesRemaining = max(s.maxUpdates-current.UpdateCount, 0)
	}

	slog.Info("[Ledger] Rejected write",
		"producer_id", key.ProducerID,
		"slot", key.Slot,
		"reason", reason)

	return v1.RecordResult{
		Outcome:          v1.OutcomeRejected,
		UpdatesRemaining: rej.UpdatesRemaining,
		Rejection:        rej,
	}
}

func (s *Service) limitMessage(current *v1.CollectionEvent) string {
	return fmt.Sprintf("%s collection for %s on %s already corrected %d of %d times; current quantity %s",
		current.Slot, current.ProducerID, current.Day.Format("02 Jan"),
		current.UpdateCount, s.maxUpdates, current.Quantity.String())
}

func (s *Service) wrapStoreErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, op, err)
}

// EventsFor returns the events in [start, end) for scope as they are at call
// time. The sequence is finite and may be ranged over more than once.
func (s *Service) EventsFor(ctx context.Context, scope Scope, start, end time.Time) (iter.Seq[v1.CollectionEvent], error) {
	events, err := s.store.ListEvents(ctx, storage.EventFilter{
		ProducerID:  scope.ProducerID,
		CollectorID: scope.CollectorID,
		Slot:        scope.Slot,
		Start:       start,
		End:         end,
	})
	if err != nil {
		return nil, s.wrapStoreErr(ctx, "list events", err)
	}

	snapshot := make([]v1.CollectionEvent, len(events))
	for i, e := range events {
		snapshot[i] = *e
	}
	return func(yield func(v1.CollectionEvent) bool) {
		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}, nil
}

func lockKey(k storage.SlotKey) string {
	return k.ProducerID + "|" + string(k.Slot) + "|" + k.Day.Format(time.DateOnly)
}
