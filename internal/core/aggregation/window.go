package aggregation

import (
	"errors"
	"fmt"
	"time"
)

var errPositive = errors.New("must be positive")

// WindowSpec represents a parsed and validated window size.
type WindowSpec struct {
	Size time.Duration
}

// ParseWindowSize parses a duration string into a WindowSpec.
// Supports Go duration syntax (e.g., "10s", "1m", "1h") plus "Xd" for days.
// Errors do not name the setting; callers wrap them with the config key.
func ParseWindowSize(s string) (WindowSpec, error) {
	if s == "" {
		return WindowSpec{}, errors.New("must not be empty")
	}

	// time.ParseDuration has no "d" unit.
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return WindowSpec{}, fmt.Errorf("bad day count: %w", err)
		}
		if days <= 0 {
			return WindowSpec{}, errPositive
		}
		return WindowSpec{Size: time.Duration(days) * 24 * time.Hour}, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return WindowSpec{}, err
	}
	if d <= 0 {
		return WindowSpec{}, errPositive
	}
	return WindowSpec{Size: d}, nil
}

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// StartOfISOWeek returns local midnight of the Monday on or before t.
func StartOfISOWeek(t time.Time, loc *time.Location) time.Time {
	d := StartOfDay(t, loc)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}

// StartOfMonth returns local midnight of the first day of t's month.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// WeekOfMonth is the 1-based week ordinal of a day of month: days 1-7 are week 1.
func WeekOfMonth(dayOfMonth int) int {
	return (dayOfMonth-1)/7 + 1
}

// PeriodRange returns the calendar period of granularity g that contains t:
// the day, ISO week or month.
func PeriodRange(g Granularity, t time.Time, loc *time.Location) (time.Time, time.Time) {
	switch g {
	case GranularityWeek:
		start := StartOfISOWeek(t, loc)
		return start, start.AddDate(0, 0, 7)
	case GranularityMonth:
		start := StartOfMonth(t, loc)
		return start, start.AddDate(0, 1, 0)
	default:
		start := StartOfDay(t, loc)
		return start, start.AddDate(0, 0, 1)
	}
}

const (
	dayLabelLayout   = "Mon 02 Jan"
	shortDateLayout  = "02 Jan"
	isoWeekLabelForm = "%04d-W%02d"
)

// Buckets enumerates the contiguous buckets of granularity g covering [start, end).
// Buckets are clipped to the range and returned in chronological order.
func Buckets(g Granularity, start, end time.Time, loc *time.Location) []Bucket {
	var out []Bucket
	emit := func(bs, be time.Time, label string, ordinal int) {
		if bs.Before(start) {
			bs = start
		}
		if be.After(end) {
			be = end
		}
		if !be.After(bs) {
			return
		}
		out = append(out, Bucket{Label: label, Start: bs, End: be, Ordinal: ordinal})
	}

	switch g {
	case GranularityWeek:
		for w := StartOfISOWeek(start, loc); w.Before(end); w = w.AddDate(0, 0, 7) {
			year, week := w.ISOWeek()
			emit(w, w.AddDate(0, 0, 7), fmt.Sprintf(isoWeekLabelForm, year, week), 0)
		}
		for i := range out {
			out[i].Days = dayTotals(out[i].Start, out[i].End, loc)
		}
	case GranularityMonth:
		for m := StartOfMonth(start, loc); m.Before(end); m = m.AddDate(0, 1, 0) {
			next := m.AddDate(0, 1, 0)
			for ordinal := 1; ordinal <= 5; ordinal++ {
				ws := m.AddDate(0, 0, (ordinal-1)*7)
				if !ws.Before(next) {
					break
				}
				we := ws.AddDate(0, 0, 7)
				if we.After(next) {
					we = next
				}
				label := monthWeekLabel(ordinal, ws, we, start, end, loc)
				emit(ws, we, label, ordinal)
			}
		}
	default:
		for d := StartOfDay(start, loc); d.Before(end); d = d.AddDate(0, 0, 1) {
			emit(d, d.AddDate(0, 0, 1), d.Format(dayLabelLayout), 0)
		}
	}
	return out
}

// monthWeekLabel renders "Week 2 (08 Oct - 14 Oct)" using the clipped first and last day.
func monthWeekLabel(ordinal int, ws, we, start, end time.Time, loc *time.Location) string {
	first, last := ws, we
	if first.Before(start) {
		first = StartOfDay(start, loc)
	}
	if last.After(end) {
		last = end
	}
	lastDay := StartOfDay(last.Add(-time.Nanosecond), loc)
	return fmt.Sprintf("Week %d (%s - %s)", ordinal, first.Format(shortDateLayout), lastDay.Format(shortDateLayout))
}

func dayTotals(start, end time.Time, loc *time.Location) []DayTotal {
	var days []DayTotal
	for d := StartOfDay(start, loc); d.Before(end); d = d.AddDate(0, 0, 1) {
		days = append(days, DayTotal{Label: d.Format(dayLabelLayout), Date: d})
	}
	return days
}
