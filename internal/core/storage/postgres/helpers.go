package postgres

import (
	"fmt"
	"time"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/shopspring/decimal"
)

// unboundedEnd stands in for a zero EventFilter.End.
var unboundedEnd = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans a database row into a CollectionEvent.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanEventRow(row scanner) (*v1.CollectionEvent, error) {
	var evt v1.CollectionEvent
	var slotName, quantityStr string

	err := row.Scan(
		&evt.ID,
		&evt.ProducerID,
		&evt.CollectorID,
		&slotName,
		&evt.Day,
		&evt.Timestamp,
		&quantityStr,
		&evt.UpdateCount,
		&evt.Revision,
		&evt.CreatedAt,
		&evt.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection event row: %w", err)
	}

	evt.Slot, err = slot.Parse(slotName)
	if err != nil {
		return nil, fmt.Errorf("collection event %s: %w", evt.ID, err)
	}
	evt.Quantity, err = decimal.NewFromString(quantityStr)
	if err != nil {
		return nil, fmt.Errorf("collection event %s: parse quantity %q: %w", evt.ID, quantityStr, err)
	}
	return &evt, nil
}

// filterArgs flattens an EventFilter into the positional parameters shared by
// queryListEvents and queryMaxRevision.
func filterArgs(f storage.EventFilter) []interface{} {
	end := f.End
	if end.IsZero() {
		end = unboundedEnd
	}
	return []interface{}{f.ProducerID, f.CollectorID, string(f.Slot), f.Start, end}
}
