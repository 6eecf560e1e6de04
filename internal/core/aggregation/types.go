package aggregation

import (
	"errors"
	"fmt"
	"time"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
	"github.com/shopspring/decimal"
)

// ErrInvalidKey is returned when a rollup key cannot be evaluated.
var ErrInvalidKey = errors.New("invalid rollup key")

// MaxRange bounds how much calendar a single rollup may cover.
const MaxRange = 366 * 24 * time.Hour

// Dimension selects which events a rollup folds.
type Dimension string

const (
	DimensionGlobal    Dimension = "global"
	DimensionProducer  Dimension = "producer"
	DimensionCollector Dimension = "collector"
	DimensionSlot      Dimension = "slot"
)

// Granularity selects how a rollup range is split into buckets.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseDimension defaults to global when s is empty.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(s); d {
	case "":
		return DimensionGlobal, nil
	case DimensionGlobal, DimensionProducer, DimensionCollector, DimensionSlot:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown dimension %q", ErrInvalidKey, s)
}

// ParseGranularity defaults to day when s is empty.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case "":
		return GranularityDay, nil
	case GranularityDay, GranularityWeek, GranularityMonth:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown granularity %q", ErrInvalidKey, s)
}

// Key identifies one rollup. The range is half-open: RangeStart <= t < RangeEnd.
type Key struct {
	Dimension   Dimension   `json:"dimension"`
	ID          string      `json:"id,omitempty"`
	Granularity Granularity `json:"granularity"`
	RangeStart  time.Time   `json:"range_start"`
	RangeEnd    time.Time   `json:"range_end"`
}

// Validate rejects keys the engine cannot evaluate.
func (k Key) Validate() error {
	if _, err := ParseDimension(string(k.Dimension)); err != nil || k.Dimension == "" {
		return fmt.Errorf("%w: unknown dimension %q", ErrInvalidKey, k.Dimension)
	}
	if _, err := ParseGranularity(string(k.Granularity)); err != nil || k.Granularity == "" {
		return fmt.Errorf("%w: unknown granularity %q", ErrInvalidKey, k.Granularity)
	}
	switch k.Dimension {
	case DimensionGlobal:
		if k.ID != "" {
			return fmt.Errorf("%w: global rollups take no id", ErrInvalidKey)
		}
	case DimensionSlot:
		if _, err := slot.Parse(k.ID); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
	default:
		if k.ID == "" {
			return fmt.Errorf("%w: %s rollups require an id", ErrInvalidKey, k.Dimension)
		}
	}
	if k.RangeStart.IsZero() || k.RangeEnd.IsZero() {
		return fmt.Errorf("%w: range_start and range_end are required", ErrInvalidKey)
	}
	if !k.RangeEnd.After(k.RangeStart) {
		return fmt.Errorf("%w: range_end must be after range_start", ErrInvalidKey)
	}
	if k.RangeEnd.Sub(k.RangeStart) > MaxRange {
		return fmt.Errorf("%w: range exceeds %s", ErrInvalidKey, MaxRange)
	}
	return nil
}

// Signature is the stable cache and snapshot key for k.
func (k Key) Signature() string {
	return fmt.Sprintf("rollup:%s:%s:%s:%s:%s",
		k.Dimension, k.ID, k.Granularity,
		k.RangeStart.UTC().Format(time.RFC3339Nano),
		k.RangeEnd.UTC().Format(time.RFC3339Nano),
	)
}

// Covers reports whether e falls inside the events k folds.
func (k Key) Covers(e *v1.CollectionEvent) bool {
	if e.Timestamp.Before(k.RangeStart) || !e.Timestamp.Before(k.RangeEnd) {
		return false
	}
	switch k.Dimension {
	case DimensionProducer:
		return e.ProducerID == k.ID
	case DimensionCollector:
		return e.CollectorID == k.ID
	case DimensionSlot:
		return string(e.Slot) == k.ID
	}
	return true
}

// SlotTotals always carries all four slots.
type SlotTotals map[slot.Slot]decimal.Decimal

// NewSlotTotals returns zeroed totals for every slot.
func NewSlotTotals() SlotTotals {
	t := make(SlotTotals, len(slot.All()))
	for _, s := range slot.All() {
		t[s] = decimal.Zero
	}
	return t
}

func (t SlotTotals) add(s slot.Slot, qty decimal.Decimal) {
	t[s] = t[s].Add(qty)
}

// Rollup is the derived summary for one Key.
type Rollup struct {
	Key           Key                        `json:"key"`
	TotalQuantity decimal.Decimal            `json:"total_quantity"`
	CountEvents   int64                      `json:"count_events"`
	BySlot        SlotTotals                 `json:"by_slot"`
	ByProducer    map[string]decimal.Decimal `json:"by_producer"`
	ByCollector   map[string]decimal.Decimal `json:"by_collector"`
	Buckets       []Bucket                   `json:"buckets"`

	// Revision is the highest event revision folded in; 0 for an empty range.
	Revision int64 `json:"revision"`

	// SourceRevision is the max revision of the validity scope when the fold
	// started. Snapshots are reused only while it is unchanged.
	SourceRevision int64     `json:"source_revision"`
	ComputedAt     time.Time `json:"computed_at"`
}

// Bucket is one day, ISO week or week-of-month inside a rollup range.
type Bucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Ordinal is the week-of-month (1..5) for month granularity.
	Ordinal int `json:"ordinal,omitempty"`

	TotalQuantity decimal.Decimal `json:"total_quantity"`
	CountEvents   int64           `json:"count_events"`
	BySlot        SlotTotals      `json:"by_slot"`

	// Days is the ordered per-day breakdown for week granularity.
	Days []DayTotal `json:"days,omitempty"`
}

// DayTotal is one day inside a week bucket.
type DayTotal struct {
	Label    string          `json:"label"`
	Date     time.Time       `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
}
