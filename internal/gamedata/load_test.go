package gamedata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTablesAreValid(t *testing.T) {
	t.Parallel()

	d, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, d.Bosses)
	assert.Equal(t, []string{"hot", "pof", "day", "ibs", "eod"}, d.GroupIDs())

	for _, g := range d.Groups {
		for _, m := range g.Maps {
			assert.Equal(t, CycleMinutes, m.CycleLength(), "%s/%s", g.ID, m.Name)
			assert.Equal(t, g.ID, m.Group)
		}
	}

	tyria, ok := d.Map("DAY", "Tyria")
	require.True(t, ok)
	assert.Equal(t, "Night", tyria.Phases[0].Name)
}

func TestParseRejectsMalformedTables(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "bad cycle sum",
			yaml: `
groups:
  - id: hot
    maps:
      - name: A
        phases:
          - { name: X, duration: 60 }
          - { name: Y, duration: 50 }
`,
			want: "sum to 110",
		},
		{
			name: "zero interval",
			yaml: `
bosses:
  - name: B
    category: fixed-interval
    interval_hours: 0
    start_time: "00:15"
`,
			want: "interval_hours",
		},
		{
			name: "unknown category",
			yaml: `
bosses:
  - name: B
    category: sometimes
`,
			want: "unknown category",
		},
		{
			name: "bad time of day",
			yaml: `
bosses:
  - name: B
    category: fixed-times
    times: ["25:00"]
`,
			want: "out of range",
		},
		{
			name: "unknown key",
			yaml: `
bosses:
  - name: B
    colour: red
`,
			want: "decode failed",
		},
		{
			name: "empty phases",
			yaml: `
groups:
  - id: pof
    maps:
      - name: A
`,
			want: "phases must not be empty",
		},
		{
			name: "duplicate group",
			yaml: `
groups:
  - id: hot
  - id: HOT
`,
			want: "duplicate id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseEmptyTables(t *testing.T) {
	t.Parallel()

	d, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, d.Bosses)
	assert.Empty(t, d.Groups)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "timers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bosses:
  - name: Tequatl the Sunless
    waypoint: "[&BNABAAA=]"
    category: fixed-times
    times: ["00:00", "16:00"]
`), 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	require.Len(t, d.Bosses, 1)
	assert.Equal(t, TimeOfDay{Hour: 16}, d.Bosses[0].Times[1])

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tod, err := ParseTimeOfDay(" 07:05 ")
	require.NoError(t, err)
	assert.Equal(t, "07:05", tod.String())

	for _, bad := range []string{"", "7", "aa:00", "12:bb", "24:00", "12:60"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}
