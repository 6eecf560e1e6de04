package v1

import (
	"fmt"
	"time"

	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
	"github.com/shopspring/decimal"
)

// Outcome tags the result of a record-or-update call.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeRejected Outcome = "rejected"
)

// RejectedReason enumerates the expected, recoverable reasons a write is refused.
type RejectedReason string

const (
	RejectedInvalidQuantity        RejectedReason = "invalid_quantity"
	RejectedUnknownProducer        RejectedReason = "unknown_producer"
	RejectedUpdateLimitExceeded    RejectedReason = "update_limit_exceeded"
	RejectedConcurrentModification RejectedReason = "concurrent_modification"
)

// RecordRequest is the POST body for recording a collection.
type RecordRequest struct {
	ProducerID  string          `json:"producer_id" binding:"required"`
	CollectorID string          `json:"collector_id"`
	Quantity    decimal.Decimal `json:"quantity"`

	// RecordedAt overrides the server clock; used by devices syncing offline captures.
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// RecordResult is returned for every record-or-update call, including rejections.
// Exactly one of Event (created/updated) or Rejection (rejected) is set.
type RecordResult struct {
	Outcome Outcome          `json:"outcome"`
	Event   *CollectionEvent `json:"event,omitempty"`

	// PreviousQuantity and Delta are set on updates so callers can show "previous -> new".
	PreviousQuantity *decimal.Decimal `json:"previous_quantity,omitempty"`
	Delta            *decimal.Decimal `json:"delta,omitempty"`

	UpdatesRemaining int        `json:"updates_remaining"`
	Rejection        *Rejection `json:"rejection,omitempty"`
}

// Rejected reports whether the write was refused.
func (r RecordResult) Rejected() bool {
	return r.Outcome == OutcomeRejected
}

// Rejection carries enough of the existing record to explain the refusal without
// another round trip.
type Rejection struct {
	Reason  RejectedReason `json:"reason"`
	Message string         `json:"message"`

	ProducerID string    `json:"producer_id"`
	Slot       slot.Slot `json:"slot,omitempty"`
	Day        time.Time `json:"day,omitempty"`

	// CurrentQuantity is the stored quantity when a record exists, zero otherwise.
	CurrentQuantity  decimal.Decimal `json:"current_quantity"`
	UpdatesUsed      int             `json:"updates_used"`
	UpdatesRemaining int             `json:"updates_remaining"`
}

func (r *Rejection) String() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}
