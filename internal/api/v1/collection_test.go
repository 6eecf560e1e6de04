package v1

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCollectionEvent_Validate(t *testing.T) {
	now := time.Date(2026, 10, 12, 6, 0, 0, 0, time.UTC)
	valid := func() CollectionEvent {
		return CollectionEvent{
			ID:         "evt-1",
			ProducerID: "P1",
			Timestamp:  now,
			Day:        time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
			Slot:       slot.Morning,
			Quantity:   decimal.NewFromInt(10),
		}
	}

	tests := []struct {
		name    string
		mutate  func(e *CollectionEvent)
		wantErr string
	}{
		{name: "valid", mutate: func(*CollectionEvent) {}},
		{name: "missing id", mutate: func(e *CollectionEvent) { e.ID = "" }, wantErr: "id is required"},
		{name: "missing producer", mutate: func(e *CollectionEvent) { e.ProducerID = "" }, wantErr: "producer_id is required"},
		{name: "missing timestamp", mutate: func(e *CollectionEvent) { e.Timestamp = time.Time{} }, wantErr: "timestamp is required"},
		{name: "bad slot", mutate: func(e *CollectionEvent) { e.Slot = "night" }, wantErr: "unknown slot"},
		{name: "negative quantity", mutate: func(e *CollectionEvent) { e.Quantity = decimal.NewFromInt(-1) }, wantErr: "quantity"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			evt := valid()
			tc.mutate(&evt)
			err := evt.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestRecordResult_RejectionShape(t *testing.T) {
	res := RecordResult{
		Outcome: OutcomeRejected,
		Rejection: &Rejection{
			Reason:          RejectedUpdateLimitExceeded,
			Message:         "morning collection already corrected",
			ProducerID:      "P1",
			Slot:            slot.Morning,
			CurrentQuantity: decimal.NewFromInt(12),
			UpdatesUsed:     1,
		},
	}
	require.True(t, res.Rejected())

	body, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "rejected", decoded["outcome"])
	require.NotContains(t, decoded, "event")

	rejection := decoded["rejection"].(map[string]interface{})
	require.Equal(t, "update_limit_exceeded", rejection["reason"])
	require.Equal(t, "12", rejection["current_quantity"])
	require.Equal(t, float64(0), rejection["updates_remaining"])
}

func TestParseDirectoryKind(t *testing.T) {
	kind, err := ParseDirectoryKind("")
	require.NoError(t, err)
	require.Equal(t, KindProducers, kind)

	kind, err = ParseDirectoryKind("collectors")
	require.NoError(t, err)
	require.Equal(t, KindCollectors, kind)

	_, err = ParseDirectoryKind("cows")
	require.Error(t, err)
}
