package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage/memory"
	storagemocks "github.com/jolla3/maziwa-smart-sub000/internal/mocks/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, maxUpdates int) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.PutParty(v1.KindProducers, v1.Party{ID: "P1", Name: "Achieng"})
	store.PutParty(v1.KindProducers, v1.Party{ID: "P2", Name: "Baraka"})

	svc := NewService(store, slot.Default(), Options{MaxUpdatesPerSlot: maxUpdates})
	svc.nowFn = func() time.Time { return day.Add(20 * time.Hour) }
	return svc, store
}

func record(t *testing.T, svc *Service, producer string, qty int64, at time.Time) v1.RecordResult {
	t.Helper()
	res, err := svc.RecordOrUpdate(context.Background(), RecordCommand{
		ProducerID:  producer,
		CollectorID: "C1",
		Quantity:    decimal.NewFromInt(qty),
		Now:         at,
	})
	require.NoError(t, err)
	return res
}

func TestRecordOrUpdate_CreateCorrectThenLimit(t *testing.T) {
	svc, _ := newTestService(t, 1)

	first := record(t, svc, "P1", 10, day.Add(6*time.Hour))
	require.Equal(t, v1.OutcomeCreated, first.Outcome)
	require.Equal(t, slot.Morning, first.Event.Slot)
	require.Equal(t, "10", first.Event.Quantity.String())
	require.Equal(t, 1, first.UpdatesRemaining)

	second := record(t, svc, "P1", 12, day.Add(7*time.Hour))
	require.Equal(t, v1.OutcomeUpdated, second.Outcome)
	require.Equal(t, "10", second.PreviousQuantity.String())
	require.Equal(t, "12", second.Event.Quantity.String())
	require.Equal(t, "2", second.Delta.String())
	require.Equal(t, 0, second.UpdatesRemaining)
	require.Equal(t, first.Event.ID, second.Event.ID)
	require.Greater(t, second.Event.Revision, first.Event.Revision)

	third := record(t, svc, "P1", 15, day.Add(8*time.Hour))
	require.True(t, third.Rejected())
	require.Equal(t, v1.RejectedUpdateLimitExceeded, third.Rejection.Reason)
	require.Equal(t, "12", third.Rejection.CurrentQuantity.String())
	require.Equal(t, 1, third.Rejection.UpdatesUsed)
	require.Zero(t, third.Rejection.UpdatesRemaining)
	require.Equal(t, slot.Morning, third.Rejection.Slot)
}

func TestRecordOrUpdate_BoundedUpdates(t *testing.T) {
	for _, maxUpdates := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("max_%d", maxUpdates), func(t *testing.T) {
			svc, _ := newTestService(t, maxUpdates)

			accepted := 0
			for i := 0; i < maxUpdates+5; i++ {
				res := record(t, svc, "P1", int64(i+1), day.Add(6*time.Hour+time.Duration(i)*time.Minute))
				if res.Rejected() {
					require.Equal(t, v1.RejectedUpdateLimitExceeded, res.Rejection.Reason)
					continue
				}
				accepted++
			}
			require.Equal(t, maxUpdates+1, accepted)
		})
	}
}

func TestRecordOrUpdate_SlotsAreIndependent(t *testing.T) {
	svc, _ := newTestService(t, 1)

	require.Equal(t, v1.OutcomeCreated, record(t, svc, "P1", 10, day.Add(6*time.Hour)).Outcome)
	require.Equal(t, v1.OutcomeCreated, record(t, svc, "P1", 4, day.Add(18*time.Hour)).Outcome)
	require.Equal(t, v1.OutcomeCreated, record(t, svc, "P2", 7, day.Add(6*time.Hour)).Outcome)
	require.Equal(t, v1.OutcomeCreated, record(t, svc, "P1", 9, day.Add(30*time.Hour)).Outcome)
}

func TestRecordOrUpdate_Rejections(t *testing.T) {
	svc, _ := newTestService(t, 1)

	res := record(t, svc, "P1", 0, day.Add(6*time.Hour))
	require.Equal(t, v1.RejectedInvalidQuantity, res.Rejection.Reason)

	res = record(t, svc, "P1", -3, day.Add(6*time.Hour))
	require.Equal(t, v1.RejectedInvalidQuantity, res.Rejection.Reason)

	res = record(t, svc, "ghost", 5, day.Add(6*time.Hour))
	require.Equal(t, v1.RejectedUnknownProducer, res.Rejection.Reason)
	require.Equal(t, "ghost", res.Rejection.ProducerID)
}

func TestRecordOrUpdate_DefaultsNowFromClock(t *testing.T) {
	svc, _ := newTestService(t, 1)

	res, err := svc.RecordOrUpdate(context.Background(), RecordCommand{ProducerID: "P1", Quantity: decimal.NewFromInt(3)})
	require.NoError(t, err)
	require.Equal(t, slot.Evening, res.Event.Slot)
	require.Equal(t, day, res.Event.Day)
}

func TestRecordOrUpdate_ConcurrentWritersRespectLimit(t *testing.T) {
	svc, _ := newTestService(t, 2)

	const writers = 40
	var wg sync.WaitGroup
	results := make(chan v1.RecordResult, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.RecordOrUpdate(context.Background(), RecordCommand{
				ProducerID: "P1",
				Quantity:   decimal.NewFromInt(int64(i + 1)),
				Now:        day.Add(6 * time.Hour),
			})
			if err != nil {
				t.Error(err)
				return
			}
			results <- res
		}(i)
	}
	wg.Wait()
	close(results)

	counts := map[v1.Outcome]int{}
	for res := range results {
		counts[res.Outcome]++
	}
	require.Equal(t, 1, counts[v1.OutcomeCreated])
	require.Equal(t, 2, counts[v1.OutcomeUpdated])
	require.Equal(t, writers-3, counts[v1.OutcomeRejected])
}

func TestRecordOrUpdate_LostInsertRaceReportsConcurrentModification(t *testing.T) {
	store := storagemocks.NewCollectionStore(t)
	svc := NewService(store, slot.Default(), Options{MaxUpdatesPerSlot: 1})

	at := day.Add(6 * time.Hour)
	winner := &v1.CollectionEvent{ID: "evt-w", ProducerID: "P1", Slot: slot.Morning, Day: day, Quantity: decimal.NewFromInt(8)}

	store.EXPECT().ProducerExists(mock.Anything, "P1").Return(true, nil).Once()
	store.EXPECT().FindSlotEvent(mock.Anything, mock.Anything).Return(nil, storage.ErrNotFound).Once()
	store.EXPECT().InsertEvent(mock.Anything, mock.Anything).Return(storage.ErrDuplicate).Once()
	store.EXPECT().FindSlotEvent(mock.Anything, mock.Anything).Return(winner, nil).Once()

	res, err := svc.RecordOrUpdate(context.Background(), RecordCommand{ProducerID: "P1", Quantity: decimal.NewFromInt(5), Now: at})
	require.NoError(t, err)
	require.Equal(t, v1.RejectedConcurrentModification, res.Rejection.Reason)
	require.Equal(t, "8", res.Rejection.CurrentQuantity.String())
	require.Equal(t, 1, res.Rejection.UpdatesRemaining)
}

func TestRecordOrUpdate_LostUpdateRaceAtLimit(t *testing.T) {
	store := storagemocks.NewCollectionStore(t)
	svc := NewService(store, slot.Default(), Options{MaxUpdatesPerSlot: 1})

	current := &v1.CollectionEvent{ID: "evt-1", ProducerID: "P1", Timestamp: day.Add(6 * time.Hour), Slot: slot.Morning, Day: day, Quantity: decimal.NewFromInt(10), Revision: 3}
	winner := *current
	winner.Quantity = decimal.NewFromInt(11)
	winner.UpdateCount = 1
	winner.Revision = 4

	store.EXPECT().ProducerExists(mock.Anything, "P1").Return(true, nil).Once()
	store.EXPECT().FindSlotEvent(mock.Anything, mock.Anything).Return(current, nil).Once()
	store.EXPECT().UpdateEvent(mock.Anything, mock.Anything, int64(3)).Return(storage.ErrRevisionConflict).Once()
	store.EXPECT().FindSlotEvent(mock.Anything, mock.Anything).Return(&winner, nil).Once()

	res, err := svc.RecordOrUpdate(context.Background(), RecordCommand{ProducerID: "P1", Quantity: decimal.NewFromInt(12), Now: day.Add(7 * time.Hour)})
	require.NoError(t, err)
	require.Equal(t, v1.RejectedUpdateLimitExceeded, res.Rejection.Reason)
	require.Equal(t, "11", res.Rejection.CurrentQuantity.String())
}

func TestRecordOrUpdate_StoreFailuresAreErrors(t *testing.T) {
	store := storagemocks.NewCollectionStore(t)
	svc := NewService(store, slot.Default(), Options{})

	store.EXPECT().ProducerExists(mock.Anything, "P1").Return(false, errors.New("connection refused")).Once()

	_, err := svc.RecordOrUpdate(context.Background(), RecordCommand{ProducerID: "P1", Quantity: decimal.NewFromInt(1), Now: day.Add(6 * time.Hour)})
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.ErrorContains(t, err, "connection refused")
}

func TestRecordOrUpdate_Timeout(t *testing.T) {
	store := storagemocks.NewCollectionStore(t)
	svc := NewService(store, slot.Default(), Options{WriteTimeout: 20 * time.Millisecond})

	store.EXPECT().ProducerExists(mock.Anything, "P1").
		RunAndReturn(func(ctx context.Context, _ string) (bool, error) {
			<-ctx.Done()
			return false, ctx.Err()
		}).Once()

	_, err := svc.RecordOrUpdate(context.Background(), RecordCommand{ProducerID: "P1", Quantity: decimal.NewFromInt(1), Now: day.Add(6 * time.Hour)})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestSubscribe_NotifiedOnSuccessOnly(t *testing.T) {
	svc, _ := newTestService(t, 1)

	var seen []string
	unsubscribe := svc.Subscribe(func(evt v1.CollectionEvent) {
		seen = append(seen, fmt.Sprintf("%s:%s", evt.ProducerID, evt.Quantity))
	})

	record(t, svc, "P1", 10, day.Add(6*time.Hour))
	record(t, svc, "P1", 12, day.Add(7*time.Hour))
	record(t, svc, "P1", 14, day.Add(8*time.Hour)) // rejected
	record(t, svc, "ghost", 1, day.Add(8*time.Hour))

	unsubscribe()
	record(t, svc, "P2", 3, day.Add(6*time.Hour))

	require.Equal(t, []string{"P1:10", "P1:12"}, seen)
}

func TestEventsFor_SnapshotIsRestartable(t *testing.T) {
	svc, _ := newTestService(t, 1)
	record(t, svc, "P1", 10, day.Add(6*time.Hour))
	record(t, svc, "P2", 4, day.Add(6*time.Hour))

	seq, err := svc.EventsFor(context.Background(), Scope{ProducerID: "P1"}, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)

	// Writes after the call are not visible to the snapshot.
	record(t, svc, "P1", 7, day.Add(18*time.Hour))

	for pass := 0; pass < 2; pass++ {
		var got []string
		for e := range seq {
			got = append(got, e.Quantity.String())
		}
		require.Equal(t, []string{"10"}, got)
	}
}
