package timers

import (
	"errors"
	"fmt"
	"time"

	"gw2bot/internal/gamedata"
)

var (
	ErrEmptyCycle    = errors.New("timers: map has no phases")
	ErrCycleMismatch = errors.New("timers: phase durations do not match cycle length")
	ErrPhaseNotFound = errors.New("timers: phase not found")
	ErrNoNamedPhase  = errors.New("timers: map has no named phase")
)

// PhaseStatus is the resolver's view of one map at a cycle position.
type PhaseStatus struct {
	Map              string
	Current          string
	HasCurrent       bool
	Next             string
	MinutesUntilNext int
}

// CyclePosition returns minutes elapsed in the current two-hour window (UTC).
func CyclePosition(now time.Time) int {
	u := now.UTC()
	return (60*u.Hour() + u.Minute()) % gamedata.CycleMinutes
}

func checkCycle(meta gamedata.MapMeta) error {
	if len(meta.Phases) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyCycle, meta.Name)
	}
	if n := meta.CycleLength(); n != gamedata.CycleMinutes {
		return fmt.Errorf("%w: %s sums to %d", ErrCycleMismatch, meta.Name, n)
	}
	return nil
}

func normPosition(position int) int {
	position %= gamedata.CycleMinutes
	if position < 0 {
		position += gamedata.CycleMinutes
	}
	return position
}

// locate returns the index of the phase containing position and the
// minute at which that phase ends.
func locate(phases []gamedata.Phase, position int) (index, end int) {
	for i, p := range phases {
		if position < end {
			break
		}
		index = i
		end += p.Duration
	}
	return index, end
}

// ResolvePhase reports the phase active at position and the next named
// phase whose name differs from it. When every named phase shares the
// current name, the next separate occurrence of that name is reported.
func ResolvePhase(meta gamedata.MapMeta, position int) (PhaseStatus, error) {
	if err := checkCycle(meta); err != nil {
		return PhaseStatus{}, err
	}
	position = normPosition(position)
	phases := meta.Phases
	index, acc := locate(phases, position)

	st := PhaseStatus{Map: meta.Name, Current: phases[index].Name}
	st.HasCurrent = st.Current != ""

	double := append(append(make([]gamedata.Phase, 0, 2*len(phases)), phases...), phases...)
	separated := false
	fallbackAt := -1
	for _, p := range double[index+1:] {
		if p.Name != "" && p.Name != st.Current {
			st.Next = p.Name
			st.MinutesUntilNext = acc - position
			return st, nil
		}
		if p.Name == "" {
			separated = true
		} else if separated && fallbackAt < 0 {
			fallbackAt = acc
		}
		acc += p.Duration
	}

	if !st.HasCurrent {
		return PhaseStatus{}, fmt.Errorf("%w: %s", ErrNoNamedPhase, meta.Name)
	}
	st.Next = st.Current
	if fallbackAt >= 0 {
		st.MinutesUntilNext = fallbackAt - position
	} else {
		st.MinutesUntilNext = gamedata.CycleMinutes - position
	}
	return st, nil
}

// CurrentPhase resolves meta at the cycle position of now.
func CurrentPhase(meta gamedata.MapMeta, now time.Time) (PhaseStatus, error) {
	return ResolvePhase(meta, CyclePosition(now))
}

// MinutesUntilPhase returns the minutes from position until the named
// phase next begins. A target that only continues the running phase
// across the cycle boundary is not counted as a new start.
func MinutesUntilPhase(meta gamedata.MapMeta, position int, target string) (int, error) {
	if err := checkCycle(meta); err != nil {
		return 0, err
	}
	if !hasPhase(meta, target) {
		return 0, fmt.Errorf("%w: %q on %s", ErrPhaseNotFound, target, meta.Name)
	}
	position = normPosition(position)
	phases := meta.Phases
	index, acc := locate(phases, position)

	index++
	if index == len(phases) {
		if phases[0].Name == phases[index-1].Name {
			index = 1
			acc += phases[0].Duration
		} else {
			index = 0
		}
	}
	for _, p := range phases[index:] {
		if p.Name == target {
			return acc - position, nil
		}
		acc += p.Duration
	}
	for _, p := range phases {
		if p.Name == target {
			return acc - position, nil
		}
		acc += p.Duration
	}
	// hasPhase guarantees a match within one lap.
	return 0, fmt.Errorf("%w: %q on %s", ErrPhaseNotFound, target, meta.Name)
}

// TimeUntilNamedPhase converts MinutesUntilPhase at now into a duration.
// Positions are whole minutes, so it matches CurrentPhase at the same now.
func TimeUntilNamedPhase(meta gamedata.MapMeta, now time.Time, target string) (time.Duration, error) {
	m, err := MinutesUntilPhase(meta, CyclePosition(now), target)
	if err != nil {
		return 0, err
	}
	return time.Duration(m) * time.Minute, nil
}

func hasPhase(meta gamedata.MapMeta, name string) bool {
	if name == "" {
		return false
	}
	for _, p := range meta.Phases {
		if p.Name == name {
			return true
		}
	}
	return false
}
