package gamedata

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

//go:embed data/event_timers.yaml
var defaultData []byte

// ErrInvalid matches every ConfigError via errors.Is.
var ErrInvalid = errors.New("gamedata: invalid tables")

// ConfigError reports a malformed static table. It is fatal at load.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "gamedata"
	if e.Path != "" {
		msg += ": " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrInvalid }

// Default returns the tables compiled into the binary.
func Default() (*Data, error) {
	return Parse(defaultData)
}

// Load reads tables from path. An empty path yields Default.
func Load(path string) (*Data, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: "read failed", Err: err}
	}
	return Parse(b)
}

// Parse decodes and validates YAML tables. Unknown keys are rejected.
func Parse(b []byte) (*Data, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var d Data
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return &Data{}, nil
		}
		return nil, &ConfigError{Reason: "decode failed", Err: err}
	}
	normalize(&d)
	if err := Validate(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func normalize(d *Data) {
	for i := range d.Bosses {
		d.Bosses[i].Name = strings.TrimSpace(d.Bosses[i].Name)
		d.Bosses[i].Category = Category(strings.ToLower(strings.TrimSpace(string(d.Bosses[i].Category))))
	}
	for gi := range d.Groups {
		g := &d.Groups[gi]
		g.ID = strings.ToLower(strings.TrimSpace(g.ID))
		for mi := range g.Maps {
			g.Maps[mi].Group = g.ID
		}
	}
}

// Validate checks structural invariants: boss categories and schedules,
// unique group ids and every map cycle summing to CycleMinutes.
func Validate(d *Data) error {
	if d == nil {
		return &ConfigError{Reason: "nil tables"}
	}
	for i, b := range d.Bosses {
		path := fmt.Sprintf("bosses[%d]", i)
		if b.Name == "" {
			return &ConfigError{Path: path, Reason: "name is required"}
		}
		path = fmt.Sprintf("bosses[%s]", b.Name)
		switch b.Category {
		case FixedInterval:
			if b.IntervalHours <= 0 {
				return &ConfigError{Path: path, Reason: "interval_hours must be > 0"}
			}
			if !b.StartTime.valid() {
				return &ConfigError{Path: path, Reason: "start_time out of range"}
			}
		case FixedTimes:
			if len(b.Times) == 0 {
				return &ConfigError{Path: path, Reason: "times must not be empty"}
			}
		default:
			return &ConfigError{Path: path, Reason: fmt.Sprintf("unknown category %q", b.Category)}
		}
	}

	seen := map[string]bool{}
	for _, g := range d.Groups {
		if g.ID == "" {
			return &ConfigError{Path: "groups", Reason: "id is required"}
		}
		if seen[g.ID] {
			return &ConfigError{Path: "groups[" + g.ID + "]", Reason: "duplicate id"}
		}
		seen[g.ID] = true
		for _, m := range g.Maps {
			path := fmt.Sprintf("groups[%s].maps[%s]", g.ID, m.Name)
			if strings.TrimSpace(m.Name) == "" {
				return &ConfigError{Path: path, Reason: "name is required"}
			}
			if len(m.Phases) == 0 {
				return &ConfigError{Path: path, Reason: "phases must not be empty"}
			}
			for pi, p := range m.Phases {
				if p.Duration <= 0 {
					return &ConfigError{Path: fmt.Sprintf("%s.phases[%d]", path, pi), Reason: "duration must be > 0"}
				}
			}
			if n := m.CycleLength(); n != CycleMinutes {
				return &ConfigError{Path: path, Reason: fmt.Sprintf("phase durations sum to %d, want %d", n, CycleMinutes)}
			}
		}
	}
	return nil
}
