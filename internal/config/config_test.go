package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
telegram:
  token: "file-token"
  poll_timeout: 10s
logging:
  level: info
  console: true
  ops_chat:
    enabled: true
    chat_id: -100200
    min_level: warn
    rate_per_sec: 2
storage:
  driver: sqlite
  path: ./gw2bot.db
dispatch:
  interval: 10s
  fire_guard: 30s
  suppress_window: 2m
  workers: 4
notifier:
  rate_per_sec: 20
  retry_max: 2
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeFile(t, t.TempDir(), "config.yaml", sampleYAML))
	m.environ = map[string]string{}

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, int64(-100200), cfg.Logging.OpsChat.ChatID)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "2m", cfg.Dispatch.SuppressWindow)
	assert.Equal(t, 4, cfg.Dispatch.Workers)
	assert.Same(t, cfg, m.Get())
	require.NoError(t, Validate(cfg))
}

func TestParseRejectsUnknownAndTrailing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := NewManager(writeFile(t, dir, "a.json", `{"telegram":{"token":"x"},"plugins":{}}`)).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugins")

	_, err = NewManager(writeFile(t, dir, "b.json", `{"telegram":{}} {"telegram":{}}`)).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing")

	_, err = NewManager(writeFile(t, dir, "c.yml", "dispatch:\n  tick_rate: 5\n")).Parse()
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Parallel()
	m := NewManager(writeFile(t, t.TempDir(), "config.yaml", sampleYAML))
	m.environ = map[string]string{
		"GW2BOT_TELEGRAM_TOKEN": "env-token",
		"GW2BOT_STORAGE_PATH":   "/var/lib/gw2bot/reminders.db",
		"GW2BOT_LOG_LEVEL":      "debug",
	}

	cfg, err := m.Parse()
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, "/var/lib/gw2bot/reminders.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched by the environment
	assert.Equal(t, "10s", cfg.Telegram.PollTimeout)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Logging:  LoggingConfig{Level: "loud"},
		Storage:  StorageConfig{Driver: "postgres"},
		Dispatch: DispatchConfig{Interval: "soon", Workers: -1},
		Notifier: NotifierConfig{Timeout: "-1s"},
	}
	err := Validate(cfg)
	require.Error(t, err)
	for _, want := range []string{"logging.level", "storage.driver", "dispatch.interval", "dispatch.workers", "notifier.timeout"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.NoError(t, Validate(&Config{}))
	assert.Error(t, Validate(nil))
}

func TestDurations(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, d)

	d, err = ParseDurationOrDefault("x", " 2m ", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	_, err = ParseDurationField("dispatch.interval", "ten")
	assert.ErrorContains(t, err, "dispatch.interval")
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	a := &Config{Telegram: TelegramConfig{Token: "a"}, Dispatch: DispatchConfig{Interval: "10s"}}
	b := &Config{Telegram: TelegramConfig{Token: "b"}, Dispatch: DispatchConfig{Interval: "5s"}, Logging: LoggingConfig{Level: "debug"}}

	changed, attrs := SummarizeConfigChange(a, b)
	assert.Equal(t, []string{"telegram", "logging", "dispatch"}, changed)
	assert.NotEmpty(t, attrs)
	assert.Equal(t, []string{"telegram"}, RestartRequired(a, b))

	changed, _ = SummarizeConfigChange(a, a)
	assert.Empty(t, changed)
}

func TestWatchPublishesValidChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"dispatch":{"interval":"10s"}}`)
	m := NewManager(path)
	m.environ = map[string]string{}
	m.SetValidator(func(_ context.Context, cfg *Config) error { return Validate(cfg) })
	_, err := m.Load()
	require.NoError(t, err)

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher time to register the directory
	time.Sleep(200 * time.Millisecond)

	// invalid content is rejected and not published
	require.NoError(t, os.WriteFile(path, []byte(`{"dispatch":{"interval":"never"}}`), 0o600))
	time.Sleep(600 * time.Millisecond)
	assert.Empty(t, ch)

	require.NoError(t, os.WriteFile(path, []byte(`{"dispatch":{"interval":"5s"}}`), 0o600))
	select {
	case cfg := <-ch:
		assert.Equal(t, "5s", cfg.Dispatch.Interval)
		assert.Equal(t, "5s", m.Get().Dispatch.Interval)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not republished")
	}
}
