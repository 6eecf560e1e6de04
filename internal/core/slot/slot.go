package slot

import (
	"fmt"
	"strings"
	"time"
)

// Slot is a named sub-division of a calendar day used to bucket collections.
type Slot string

const (
	Morning    Slot = "morning"
	Midmorning Slot = "midmorning"
	Afternoon  Slot = "afternoon"
	Evening    Slot = "evening"
)

// All returns every slot in day order.
func All() []Slot {
	return []Slot{Morning, Midmorning, Afternoon, Evening}
}

// Parse maps a query/config string to a Slot.
func Parse(s string) (Slot, error) {
	switch Slot(strings.ToLower(strings.TrimSpace(s))) {
	case Morning:
		return Morning, nil
	case Midmorning:
		return Midmorning, nil
	case Afternoon:
		return Afternoon, nil
	case Evening:
		return Evening, nil
	}
	return "", fmt.Errorf("unknown slot %q (must be morning, midmorning, afternoon or evening)", s)
}

// Boundaries are slot start offsets measured from local midnight.
// Intervals are half-open: [MorningStart, MidmorningStart) is morning, and so on.
// Everything from EveningStart until MorningStart of the same calendar day is evening.
type Boundaries struct {
	MorningStart    time.Duration
	MidmorningStart time.Duration
	AfternoonStart  time.Duration
	EveningStart    time.Duration
}

// DefaultBoundaries returns 05:00 / 10:00 / 12:00 / 17:00.
func DefaultBoundaries() Boundaries {
	return Boundaries{
		MorningStart:    5 * time.Hour,
		MidmorningStart: 10 * time.Hour,
		AfternoonStart:  12 * time.Hour,
		EveningStart:    17 * time.Hour,
	}
}

// Validate requires strictly increasing offsets inside one day.
func (b Boundaries) Validate() error {
	offsets := []struct {
		name string
		d    time.Duration
	}{
		{"morning_start", b.MorningStart},
		{"midmorning_start", b.MidmorningStart},
		{"afternoon_start", b.AfternoonStart},
		{"evening_start", b.EveningStart},
	}
	for i, o := range offsets {
		if o.d < 0 || o.d >= 24*time.Hour {
			return fmt.Errorf("slot boundary %s=%s must be within [00:00, 24:00)", o.name, o.d)
		}
		if i > 0 && o.d <= offsets[i-1].d {
			return fmt.Errorf("slot boundary %s=%s must be after %s=%s", o.name, o.d, offsets[i-1].name, offsets[i-1].d)
		}
	}
	return nil
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q (want HH:MM): %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Classifier maps instants to slots and calendar days in one time zone.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	bounds Boundaries
	loc    *time.Location
}

// NewClassifier validates the boundaries. A nil location means UTC.
func NewClassifier(b Boundaries, loc *time.Location) (*Classifier, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Classifier{bounds: b, loc: loc}, nil
}

// Default returns a UTC classifier with the default boundaries.
func Default() *Classifier {
	c, _ := NewClassifier(DefaultBoundaries(), time.UTC)
	return c
}

// Location is the zone used for slot and day computation.
func (c *Classifier) Location() *time.Location {
	return c.loc
}

// Classify returns the slot containing t.
func (c *Classifier) Classify(t time.Time) Slot {
	off := sinceMidnight(t.In(c.loc))
	switch {
	case off >= c.bounds.MorningStart && off < c.bounds.MidmorningStart:
		return Morning
	case off >= c.bounds.MidmorningStart && off < c.bounds.AfternoonStart:
		return Midmorning
	case off >= c.bounds.AfternoonStart && off < c.bounds.EveningStart:
		return Afternoon
	default:
		return Evening
	}
}

// Day returns local midnight of the calendar day containing t.
func (c *Classifier) Day(t time.Time) time.Time {
	local := t.In(c.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond())
}
