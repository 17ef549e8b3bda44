package timers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw2bot/internal/gamedata"
)

func abc() gamedata.MapMeta {
	return gamedata.MapMeta{Name: "Test", Phases: []gamedata.Phase{
		{Name: "A", Duration: 30},
		{Name: "B", Duration: 30},
		{Name: "C", Duration: 60},
	}}
}

func TestResolvePhase(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		meta     gamedata.MapMeta
		position int
		current  string
		next     string
		minutes  int
	}{
		{name: "wraps to first phase", meta: abc(), position: 100, current: "C", next: "A", minutes: 20},
		{name: "inside first phase", meta: abc(), position: 10, current: "A", next: "B", minutes: 20},
		{name: "phase boundary", meta: abc(), position: 30, current: "B", next: "C", minutes: 30},
		{name: "position normalized", meta: abc(), position: 250, current: "A", next: "B", minutes: 20},
		{
			name: "filler is no current",
			meta: gamedata.MapMeta{Name: "TD", Phases: []gamedata.Phase{
				{Name: "", Duration: 25}, {Name: "Prep", Duration: 5}, {Name: "Gerent", Duration: 20}, {Name: "", Duration: 70},
			}},
			position: 60, current: "", next: "Prep", minutes: 85,
		},
		{
			name: "skips continuation of current name",
			meta: gamedata.MapMeta{Name: "Tyria", Phases: []gamedata.Phase{
				{Name: "Night", Duration: 25}, {Name: "Dawn", Duration: 5}, {Name: "Day", Duration: 70},
				{Name: "Dusk", Duration: 5}, {Name: "Night", Duration: 15},
			}},
			position: 110, current: "Night", next: "Dawn", minutes: 35,
		},
		{
			name: "single named phase falls back to next occurrence",
			meta: gamedata.MapMeta{Name: "Storm", Phases: []gamedata.Phase{
				{Name: "Dragonstorm", Duration: 20}, {Name: "", Duration: 100},
			}},
			position: 5, current: "Dragonstorm", next: "Dragonstorm", minutes: 115,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			st, err := ResolvePhase(tc.meta, tc.position)
			require.NoError(t, err)
			assert.Equal(t, tc.current, st.Current)
			assert.Equal(t, tc.current != "", st.HasCurrent)
			assert.Equal(t, tc.next, st.Next)
			assert.Equal(t, tc.minutes, st.MinutesUntilNext)
		})
	}
}

func TestResolvePhaseStructuralErrors(t *testing.T) {
	t.Parallel()

	_, err := ResolvePhase(gamedata.MapMeta{Name: "empty"}, 0)
	assert.ErrorIs(t, err, ErrEmptyCycle)

	_, err = ResolvePhase(gamedata.MapMeta{Name: "short", Phases: []gamedata.Phase{{Name: "A", Duration: 90}}}, 0)
	assert.ErrorIs(t, err, ErrCycleMismatch)

	_, err = ResolvePhase(gamedata.MapMeta{Name: "filler", Phases: []gamedata.Phase{{Duration: 60}, {Duration: 60}}}, 0)
	assert.ErrorIs(t, err, ErrNoNamedPhase)

	_, err = MinutesUntilPhase(abc(), 0, "Z")
	assert.ErrorIs(t, err, ErrPhaseNotFound)

	_, err = MinutesUntilPhase(abc(), 0, "")
	assert.ErrorIs(t, err, ErrPhaseNotFound)
}

func TestMinutesUntilPhase(t *testing.T) {
	t.Parallel()

	tyria := gamedata.MapMeta{Name: "Tyria", Phases: []gamedata.Phase{
		{Name: "Night", Duration: 25}, {Name: "Dawn", Duration: 5}, {Name: "Day", Duration: 70},
		{Name: "Dusk", Duration: 5}, {Name: "Night", Duration: 15},
	}}

	cases := []struct {
		position int
		target   string
		want     int
	}{
		{position: 0, target: "Dawn", want: 25},
		{position: 10, target: "Night", want: 95},
		// last phase continues into the first, so the next Night start is
		// one lap later at minute 105
		{position: 110, target: "Night", want: 115},
		{position: 110, target: "Dawn", want: 35},
		{position: 102, target: "Day", want: 48},
	}
	for _, tc := range cases {
		got, err := MinutesUntilPhase(tyria, tc.position, tc.target)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "position=%d target=%s", tc.position, tc.target)
	}
}

func TestNamedPhaseAgreesWithResolver(t *testing.T) {
	t.Parallel()

	d, err := gamedata.Default()
	require.NoError(t, err)

	metas := []gamedata.MapMeta{abc()}
	for _, g := range d.Groups {
		metas = append(metas, g.Maps...)
	}

	for _, meta := range metas {
		for pos := 0; pos < gamedata.CycleMinutes; pos++ {
			st, err := ResolvePhase(meta, pos)
			require.NoError(t, err)
			if st.Next == st.Current {
				continue
			}
			got, err := MinutesUntilPhase(meta, pos, st.Next)
			require.NoError(t, err)
			assert.Equal(t, st.MinutesUntilNext, got, "%s at %d next=%s", meta.Name, pos, st.Next)
			assert.Positive(t, got)
		}
	}
}

func TestTimeUntilNamedPhaseMatchesCurrentPhase(t *testing.T) {
	t.Parallel()

	// 14:10:20 UTC is position 10 of the window
	now := time.Date(2026, 10, 16, 14, 10, 20, 0, time.UTC)
	assert.Equal(t, 10, CyclePosition(now))

	st, err := CurrentPhase(abc(), now)
	require.NoError(t, err)
	assert.Equal(t, "A", st.Current)
	assert.Equal(t, "B", st.Next)
	assert.Equal(t, 20, st.MinutesUntilNext)

	got, err := TimeUntilNamedPhase(abc(), now, st.Next)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(st.MinutesUntilNext)*time.Minute, got)

	for _, sec := range []int{0, 1, 30, 59} {
		at := time.Date(2026, 10, 16, 15, 47, sec, 0, time.UTC)
		st, err := CurrentPhase(abc(), at)
		require.NoError(t, err)
		got, err := TimeUntilNamedPhase(abc(), at, st.Next)
		require.NoError(t, err)
		assert.Equal(t, time.Duration(st.MinutesUntilNext)*time.Minute, got, "second %d", sec)
	}
}
