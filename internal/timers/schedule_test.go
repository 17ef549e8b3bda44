package timers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw2bot/internal/gamedata"
)

func tod(h, m int) gamedata.TimeOfDay { return gamedata.TimeOfDay{Hour: h, Minute: m} }

func date(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func TestGenerateScheduleInterval(t *testing.T) {
	t.Parallel()

	bosses := []gamedata.Boss{{
		Name:          "Svanir Shaman Chief",
		Category:      gamedata.FixedInterval,
		IntervalHours: 2,
		StartTime:     tod(0, 0),
	}}
	s := GenerateSchedule(bosses, date(2026, 10, 16, 13, 40, 0))

	require.Len(t, s.Entries, 12)
	for i, e := range s.Entries {
		assert.Equal(t, time.Duration(2*i)*time.Hour, e.Offset)
	}
	assert.Equal(t, date(2026, 10, 16, 0, 0, 0), s.Date)
}

func TestGenerateScheduleDropsOverflowAndSorts(t *testing.T) {
	t.Parallel()

	bosses := []gamedata.Boss{
		{Name: "Late", Category: gamedata.FixedInterval, IntervalHours: 5, StartTime: tod(22, 0)},
		{Name: "Tequatl", Category: gamedata.FixedTimes, Times: []gamedata.TimeOfDay{tod(19, 0), tod(0, 0)}},
		{Name: "Broken", Category: gamedata.FixedInterval, IntervalHours: 0, StartTime: tod(1, 0)},
	}
	s := GenerateSchedule(bosses, date(2026, 1, 1, 0, 0, 0))

	var got []string
	for _, e := range s.Entries {
		got = append(got, e.Name+"@"+(time.Time{}.Add(e.Offset)).Format("15:04"))
	}
	assert.Equal(t, []string{"Tequatl@00:00", "Tequatl@19:00", "Late@22:00"}, got)
}

func TestGenerateScheduleDefaultTables(t *testing.T) {
	t.Parallel()

	d, err := gamedata.Default()
	require.NoError(t, err)

	s := GenerateSchedule(d.Bosses, date(2026, 10, 16, 9, 0, 0))
	require.NotEmpty(t, s.Entries)
	for i := 1; i < len(s.Entries); i++ {
		assert.LessOrEqual(t, s.Entries[i-1].Offset, s.Entries[i].Offset)
	}
	for _, e := range s.Entries {
		assert.Less(t, e.Offset, 24*time.Hour)
	}
}

func TestGenerateScheduleEmpty(t *testing.T) {
	t.Parallel()

	s := GenerateSchedule(nil, time.Now())
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, Upcoming(s, time.Now(), 5))
}

func TestGeneratorRegeneratesOnDateChange(t *testing.T) {
	t.Parallel()

	g := NewGenerator([]gamedata.Boss{{
		Name: "Karka Queen", Category: gamedata.FixedTimes, Times: []gamedata.TimeOfDay{tod(2, 0)},
	}})

	morning := g.For(date(2026, 10, 16, 1, 0, 0))
	evening := g.For(date(2026, 10, 16, 23, 59, 59))
	assert.Same(t, morning, evening)

	next := g.For(date(2026, 10, 17, 0, 0, 1))
	assert.NotSame(t, morning, next)
	assert.Equal(t, date(2026, 10, 17, 0, 0, 0), next.Date)

	// non-UTC input resolves to the UTC calendar date
	loc := time.FixedZone("UTC+3", 3*60*60)
	same := g.For(time.Date(2026, 10, 17, 2, 0, 0, 0, loc))
	assert.Equal(t, date(2026, 10, 16, 0, 0, 0), same.Date)
}

func TestUpcoming(t *testing.T) {
	t.Parallel()

	s := GenerateSchedule([]gamedata.Boss{
		{Name: "Alpha", Waypoint: "[&A]", Category: gamedata.FixedTimes, Times: []gamedata.TimeOfDay{tod(0, 15)}},
		{Name: "Beta", Waypoint: "[&B]", Category: gamedata.FixedTimes, Times: []gamedata.TimeOfDay{tod(12, 0)}},
	}, date(2026, 10, 16, 0, 0, 0))

	now := date(2026, 10, 16, 12, 0, 0)
	got := Upcoming(s, now, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "Alpha", got[0].Name)
	assert.Equal(t, date(2026, 10, 17, 0, 15, 0), got[0].ETA)
	assert.Equal(t, "Beta", got[1].Name)
	assert.Equal(t, date(2026, 10, 17, 12, 0, 0), got[1].ETA)
	assert.Equal(t, date(2026, 10, 18, 0, 15, 0), got[2].ETA)
	assert.Equal(t, 12*time.Hour+15*time.Minute, got[0].Until)
	assert.Equal(t, "12 hours and 15 minutes", got[0].UntilText)
	assert.True(t, strings.HasSuffix(got[0].HumanUntil, "from now"), got[0].HumanUntil)

	for i, ev := range got {
		assert.True(t, ev.ETA.After(now))
		if i > 0 {
			assert.False(t, ev.ETA.Before(got[i-1].ETA))
		}
	}

	assert.Empty(t, Upcoming(s, now, 0))
	assert.Empty(t, Upcoming(s, now, -1))

	all := Upcoming(s, now, 1000)
	assert.Len(t, all, 2*MaxLookaheadDays-2)
}

func TestNextOccurrence(t *testing.T) {
	t.Parallel()

	d, err := gamedata.Default()
	require.NoError(t, err)
	s := GenerateSchedule(d.Bosses, date(2026, 10, 16, 0, 0, 0))

	eta, ok := NextOccurrence(s, date(2026, 10, 16, 23, 30, 0), "tequatl the sunless")
	require.True(t, ok)
	assert.Equal(t, date(2026, 10, 17, 0, 0, 0), eta)

	eta, ok = NextOccurrence(s, date(2026, 10, 16, 0, 15, 0), "Svanir Shaman Chief")
	require.True(t, ok)
	assert.Equal(t, date(2026, 10, 16, 2, 15, 0), eta)

	_, ok = NextOccurrence(s, time.Now(), "Nobody")
	assert.False(t, ok)

	_, ok = NextOccurrence(&DaySchedule{}, time.Now(), "Tequatl the Sunless")
	assert.False(t, ok)
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2 hours and 5 minutes", FormatUntil(2*time.Hour+5*time.Minute+30*time.Second))
	assert.Equal(t, "45 minutes", FormatUntil(45*time.Minute))
	assert.Equal(t, "0 minutes", FormatUntil(-time.Minute))

	assert.Equal(t, "4 minutes and 30 seconds", FormatCountdown(270*time.Second))
	assert.Equal(t, "59 seconds", FormatCountdown(59*time.Second))
	assert.Equal(t, "0 seconds", FormatCountdown(-time.Second))
}
