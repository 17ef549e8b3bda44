package timers

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// MaxLookaheadDays bounds the day walk of Upcoming and NextOccurrence.
	MaxLookaheadDays = 14

	DefaultUpcomingLimit = 8
)

type UpcomingEvent struct {
	Name       string
	Waypoint   string
	ETA        time.Time
	Until      time.Duration
	UntilText  string // "H hours and M minutes"
	HumanUntil string
}

// Upcoming returns up to limit entries strictly after now, walking the
// schedule day by day.
func Upcoming(s *DaySchedule, now time.Time, limit int) []UpcomingEvent {
	if s.Len() == 0 || limit <= 0 {
		return nil
	}
	out := make([]UpcomingEvent, 0, limit)
	for d := 0; d < MaxLookaheadDays; d++ {
		for _, e := range s.Entries {
			eta := s.At(e, d)
			if !eta.After(now) {
				continue
			}
			out = append(out, UpcomingEvent{
				Name:       e.Name,
				Waypoint:   e.Waypoint,
				ETA:        eta,
				Until:      eta.Sub(now),
				UntilText:  FormatUntil(eta.Sub(now)),
				HumanUntil: humanize.RelTime(eta, now, "ago", "from now"),
			})
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// NextOccurrence finds the next spawn of the named boss after now.
// Names compare case-insensitively.
func NextOccurrence(s *DaySchedule, now time.Time, name string) (time.Time, bool) {
	if s.Len() == 0 {
		return time.Time{}, false
	}
	name = strings.TrimSpace(name)
	for d := 0; d < MaxLookaheadDays; d++ {
		for _, e := range s.Entries {
			if !strings.EqualFold(e.Name, name) {
				continue
			}
			if eta := s.At(e, d); eta.After(now) {
				return eta, true
			}
		}
	}
	return time.Time{}, false
}
