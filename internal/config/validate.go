package config

import (
	"errors"
	"fmt"
	"strings"

	logx "gw2bot/pkg/logx"
)

// Validate checks values that would otherwise fail late, at apply time.
// It does not require a token; the app checks that at startup.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	durations := []struct{ path, raw string }{
		{"telegram.poll_timeout", cfg.Telegram.PollTimeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
		{"dispatch.interval", cfg.Dispatch.Interval},
		{"dispatch.fire_guard", cfg.Dispatch.FireGuard},
		{"dispatch.suppress_window", cfg.Dispatch.SuppressWindow},
		{"dispatch.delivery_timeout", cfg.Dispatch.DeliveryTimeout},
		{"notifier.retry_base", cfg.Notifier.RetryBase},
		{"notifier.retry_max_delay", cfg.Notifier.RetryMaxDelay},
		{"notifier.timeout", cfg.Notifier.Timeout},
	}
	for _, d := range durations {
		_, err := ParseDurationField(d.path, d.raw)
		add(err)
	}

	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" && !logx.ValidLevel(lvl) {
		add(fmt.Errorf("logging.level: unknown level %q", lvl))
	}
	if lvl := strings.TrimSpace(cfg.Logging.OpsChat.MinLevel); lvl != "" && !logx.ValidLevel(lvl) {
		add(fmt.Errorf("logging.ops_chat.min_level: unknown level %q", lvl))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "memory", "sqlite", "sqlite3", "none":
	default:
		add(fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}

	if cfg.Dispatch.Workers < 0 {
		add(errors.New("dispatch.workers must be >= 0"))
	}
	if cfg.Notifier.RatePerSec < 0 {
		add(errors.New("notifier.rate_per_sec must be >= 0"))
	}
	if cfg.Notifier.RetryMax < 0 {
		add(errors.New("notifier.retry_max must be >= 0"))
	}
	return errors.Join(errs...)
}
