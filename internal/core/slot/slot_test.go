package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifier_Boundaries(t *testing.T) {
	c := Default()
	day := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Duration
		want Slot
	}{
		{"midnight", 0, Evening},
		{"just before morning", 5*time.Hour - time.Nanosecond, Evening},
		{"morning start", 5 * time.Hour, Morning},
		{"six am", 6 * time.Hour, Morning},
		{"just before midmorning", 10*time.Hour - time.Second, Morning},
		{"midmorning start", 10 * time.Hour, Midmorning},
		{"afternoon start", 12 * time.Hour, Afternoon},
		{"just before evening", 17*time.Hour - time.Nanosecond, Afternoon},
		{"evening start", 17 * time.Hour, Evening},
		{"late night", 23*time.Hour + 59*time.Minute, Evening},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, c.Classify(day.Add(tc.at)))
		})
	}
}

// Every minute of the day lands in exactly one slot, and slots change only at boundaries.
func TestClassifier_PartitionsTheDay(t *testing.T) {
	c := Default()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	counts := map[Slot]int{}
	var transitions []time.Duration
	prev := c.Classify(day)
	for m := 0; m < 24*60; m++ {
		at := time.Duration(m) * time.Minute
		s := c.Classify(day.Add(at))
		require.Contains(t, All(), s)
		counts[s]++
		if s != prev {
			transitions = append(transitions, at)
			prev = s
		}
	}

	require.Equal(t, 24*60, counts[Morning]+counts[Midmorning]+counts[Afternoon]+counts[Evening])
	require.Equal(t, 5*60, counts[Morning])
	require.Equal(t, 2*60, counts[Midmorning])
	require.Equal(t, 5*60, counts[Afternoon])
	require.Equal(t, 12*60, counts[Evening])
	require.Equal(t, []time.Duration{5 * time.Hour, 10 * time.Hour, 12 * time.Hour, 17 * time.Hour}, transitions)
}

func TestClassifier_UsesConfiguredLocation(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)
	c, err := NewClassifier(DefaultBoundaries(), nairobi)
	require.NoError(t, err)

	// 03:30 UTC is 06:30 in Nairobi.
	at := time.Date(2026, 10, 12, 3, 30, 0, 0, time.UTC)
	require.Equal(t, Morning, c.Classify(at))

	// 22:30 UTC on the 11th is 01:30 on the 12th locally.
	late := time.Date(2026, 10, 11, 22, 30, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, nairobi), c.Day(late))
	require.Equal(t, Evening, c.Classify(late))
}

func TestClassifier_CustomBoundaries(t *testing.T) {
	b := Boundaries{
		MorningStart:    4 * time.Hour,
		MidmorningStart: 9 * time.Hour,
		AfternoonStart:  13 * time.Hour,
		EveningStart:    18 * time.Hour,
	}
	c, err := NewClassifier(b, time.UTC)
	require.NoError(t, err)

	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	require.Equal(t, Morning, c.Classify(day.Add(4*time.Hour)))
	require.Equal(t, Midmorning, c.Classify(day.Add(12*time.Hour)))
	require.Equal(t, Afternoon, c.Classify(day.Add(17*time.Hour+30*time.Minute)))
}

func TestBoundaries_Validate(t *testing.T) {
	b := DefaultBoundaries()
	require.NoError(t, b.Validate())

	b.AfternoonStart = b.MidmorningStart
	require.ErrorContains(t, b.Validate(), "afternoon_start")

	b = DefaultBoundaries()
	b.EveningStart = 24 * time.Hour
	require.ErrorContains(t, b.Validate(), "evening_start")

	_, err := NewClassifier(b, nil)
	require.Error(t, err)
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("05:30")
	require.NoError(t, err)
	require.Equal(t, 5*time.Hour+30*time.Minute, d)

	_, err = ParseClock("25:00")
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	s, err := Parse(" Morning ")
	require.NoError(t, err)
	require.Equal(t, Morning, s)

	_, err = Parse("night")
	require.ErrorContains(t, err, "unknown slot")
}
