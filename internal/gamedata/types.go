package gamedata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// CycleMinutes is the length of the repeating window every map meta runs on.
const CycleMinutes = 120

type Category string

const (
	FixedInterval Category = "fixed-interval"
	FixedTimes    Category = "fixed-times"
)

// TimeOfDay is a wall-clock time in UTC, minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) Offset() time.Duration {
	return time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("time of day %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day %q: invalid hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day %q: invalid minute", s)
	}
	t := TimeOfDay{Hour: h, Minute: m}
	if !t.valid() {
		return TimeOfDay{}, fmt.Errorf("time of day %q: out of range", s)
	}
	return t, nil
}

func (t *TimeOfDay) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t TimeOfDay) MarshalYAML() (any, error) { return t.String(), nil }

// Boss is one world boss. Fixed-interval bosses use IntervalHours and
// StartTime; fixed-times bosses use Times.
type Boss struct {
	Name          string      `yaml:"name"`
	Waypoint      string      `yaml:"waypoint"`
	Category      Category    `yaml:"category"`
	IntervalHours int         `yaml:"interval_hours,omitempty"`
	StartTime     TimeOfDay   `yaml:"start_time,omitempty"`
	Times         []TimeOfDay `yaml:"times,omitempty"`
}

func (b Boss) Interval() time.Duration { return time.Duration(b.IntervalHours) * time.Hour }

// Phase is one segment of a map's cycle. An empty Name marks filler time.
type Phase struct {
	Name     string `yaml:"name"`
	Duration int    `yaml:"duration"`
}

type MapMeta struct {
	Name   string  `yaml:"name"`
	Group  string  `yaml:"-"`
	Phases []Phase `yaml:"phases"`
}

// CycleLength returns the summed phase durations in minutes.
func (m MapMeta) CycleLength() int {
	n := 0
	for _, p := range m.Phases {
		n += p.Duration
	}
	return n
}

type Group struct {
	ID    string    `yaml:"id"`
	Title string    `yaml:"title"`
	Maps  []MapMeta `yaml:"maps"`
}

// Data is the full static table set. It is immutable once loaded.
type Data struct {
	Bosses []Boss  `yaml:"bosses"`
	Groups []Group `yaml:"groups"`
}

func (d *Data) Group(id string) (Group, bool) {
	if d == nil {
		return Group{}, false
	}
	id = strings.ToLower(strings.TrimSpace(id))
	for _, g := range d.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

func (d *Data) Map(group, name string) (MapMeta, bool) {
	g, ok := d.Group(group)
	if !ok {
		return MapMeta{}, false
	}
	for _, m := range g.Maps {
		if m.Name == name {
			return m, true
		}
	}
	return MapMeta{}, false
}

func (d *Data) GroupIDs() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Groups))
	for _, g := range d.Groups {
		out = append(out, g.ID)
	}
	return out
}
