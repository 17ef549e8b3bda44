// Package timers derives the world-boss day schedule and map meta phases
// from the static tables. Everything here is pure and safe for concurrent use.
package timers

import (
	"sort"
	"sync"
	"time"

	"gw2bot/internal/gamedata"
)

const day = 24 * time.Hour

// Entry is one boss spawn within the reference day.
type Entry struct {
	Name     string
	Waypoint string
	// Offset since midnight UTC.
	Offset time.Duration
}

// DaySchedule holds the entries for one UTC calendar date, sorted by
// time of day.
type DaySchedule struct {
	Date    time.Time
	Entries []Entry
}

// At returns the absolute time of e shifted by days.
func (s *DaySchedule) At(e Entry, days int) time.Time {
	return s.Date.AddDate(0, 0, days).Add(e.Offset)
}

func (s *DaySchedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GenerateSchedule expands the boss tables into entries for date.
// Interval spawns that overflow past midnight are dropped.
func GenerateSchedule(bosses []gamedata.Boss, date time.Time) *DaySchedule {
	s := &DaySchedule{Date: midnightUTC(date)}

	var interval []gamedata.Boss
	for _, b := range bosses {
		if b.Category == gamedata.FixedInterval && b.IntervalHours > 0 {
			interval = append(interval, b)
		}
	}
	for k := 0; ; k++ {
		added := false
		for _, b := range interval {
			off := b.StartTime.Offset() + time.Duration(k)*b.Interval()
			if off >= day {
				continue
			}
			s.Entries = append(s.Entries, Entry{Name: b.Name, Waypoint: b.Waypoint, Offset: off})
			added = true
		}
		if !added {
			break
		}
	}

	for _, b := range bosses {
		if b.Category != gamedata.FixedTimes {
			continue
		}
		for _, tod := range b.Times {
			s.Entries = append(s.Entries, Entry{Name: b.Name, Waypoint: b.Waypoint, Offset: tod.Offset()})
		}
	}

	sort.SliceStable(s.Entries, func(i, j int) bool {
		return s.Entries[i].Offset < s.Entries[j].Offset
	})
	return s
}

// Generator owns the cached day schedule and regenerates it when the UTC
// date changes.
type Generator struct {
	bosses []gamedata.Boss

	mu     sync.Mutex
	cached *DaySchedule
}

func NewGenerator(bosses []gamedata.Boss) *Generator {
	cp := make([]gamedata.Boss, len(bosses))
	copy(cp, bosses)
	return &Generator{bosses: cp}
}

// For returns the schedule for the UTC date of now. The returned value is
// shared and must not be modified.
func (g *Generator) For(now time.Time) *DaySchedule {
	date := midnightUTC(now)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cached == nil || !g.cached.Date.Equal(date) {
		g.cached = GenerateSchedule(g.bosses, date)
	}
	return g.cached
}
