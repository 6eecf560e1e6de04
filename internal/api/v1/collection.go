package v1

import (
	"fmt"
	"time"

	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
	"github.com/shopspring/decimal"
)

// CollectionEvent is one milk collection attributed to a producer.
// There is at most one event per (ProducerID, Slot, Day); corrections rewrite
// Quantity in place and bump UpdateCount and Revision.
type CollectionEvent struct {
	// ID is assigned by the ledger on creation and never changes.
	ID string `json:"id"`

	// ProducerID identifies the farmer the milk is attributed to.
	ProducerID string `json:"producer_id"`

	// CollectorID identifies the porter who recorded it.
	CollectorID string `json:"collector_id"`

	// Timestamp is the authoritative wall-clock time of the latest write.
	Timestamp time.Time `json:"timestamp"`

	// Day is local midnight of the calendar day the event belongs to.
	Day time.Time `json:"day"`

	Slot slot.Slot `json:"slot"`

	// Quantity is in litres.
	Quantity decimal.Decimal `json:"quantity"`

	// UpdateCount is the number of corrections applied since creation.
	UpdateCount int `json:"update_count"`

	// Revision is store-assigned and strictly increasing across all writes.
	Revision int64 `json:"revision"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate ensures the event carries the fields every store requires.
func (e *CollectionEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if e.ProducerID == "" {
		return fmt.Errorf("producer_id is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if e.Day.IsZero() {
		return fmt.Errorf("day is required")
	}
	if _, err := slot.Parse(string(e.Slot)); err != nil {
		return err
	}
	if e.Quantity.IsNegative() {
		return fmt.Errorf("quantity must not be negative")
	}
	if e.UpdateCount < 0 {
		return fmt.Errorf("update_count must not be negative")
	}
	return nil
}

// EventList is the envelope returned by the collection event listing endpoint.
type EventList struct {
	Items       []CollectionEvent `json:"items"`
	TotalCount  int               `json:"total_count"`
	MaxRevision int64             `json:"max_revision"`
}

// RevisionResponse reports the highest revision inside a scope and range.
type RevisionResponse struct {
	MaxRevision int64 `json:"max_revision"`
}
