package app

import (
	"fmt"
	"strings"
	"time"

	"gw2bot/internal/config"
	"gw2bot/internal/dispatch"
	"gw2bot/internal/notifier"
	"gw2bot/internal/storage"
	logx "gw2bot/pkg/logx"
)

const (
	defaultPollTimeout = 10 * time.Second
	defaultBusyTimeout = time.Second
)

func mapPollTimeout(cfg *config.Config) (time.Duration, error) {
	return config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, defaultPollTimeout)
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled: l.File.Enabled,
			Path:    l.File.Path,
		},
		OpsChat: logx.OpsChatConfig{
			Enabled:    l.OpsChat.Enabled,
			ChatID:     l.OpsChat.ChatID,
			ThreadID:   l.OpsChat.ThreadID,
			MinLevel:   l.OpsChat.MinLevel,
			RatePerSec: l.OpsChat.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)
	switch driver {
	case "", "memory", "none":
		return storage.Config{Driver: driver}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, defaultBusyTimeout)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapDispatchPolicy(cfg *config.Config) (dispatch.Policy, error) {
	d := cfg.Dispatch
	var (
		p   dispatch.Policy
		err error
	)
	if p.Interval, err = config.ParseDurationOrDefault("dispatch.interval", d.Interval, dispatch.DefaultInterval); err != nil {
		return p, err
	}
	if p.FireGuard, err = config.ParseDurationOrDefault("dispatch.fire_guard", d.FireGuard, dispatch.DefaultFireGuard); err != nil {
		return p, err
	}
	if p.SuppressWindow, err = config.ParseDurationOrDefault("dispatch.suppress_window", d.SuppressWindow, dispatch.DefaultSuppressWindow); err != nil {
		return p, err
	}
	if p.DeliveryTimeout, err = config.ParseDurationOrDefault("dispatch.delivery_timeout", d.DeliveryTimeout, dispatch.DefaultDeliveryTimeout); err != nil {
		return p, err
	}
	if d.Interval != "" && p.Interval < time.Second {
		return p, fmt.Errorf("dispatch.interval must be at least 1s, got %s", p.Interval)
	}
	p.Workers = d.Workers
	if p.Workers <= 0 {
		p.Workers = dispatch.DefaultWorkers
	}
	return p, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := cfg.Notifier
	out := notifier.Config{RatePerSec: n.RatePerSec, RetryMax: n.RetryMax}
	var err error
	if out.RetryBase, err = config.ParseDurationField("notifier.retry_base", n.RetryBase); err != nil {
		return out, err
	}
	if out.RetryMaxDelay, err = config.ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay); err != nil {
		return out, err
	}
	if out.Timeout, err = config.ParseDurationField("notifier.timeout", n.Timeout); err != nil {
		return out, err
	}
	return out, nil
}

// validateConfig gates hot reloads: everything that must map cleanly.
func validateConfig(cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if _, err := mapPollTimeout(cfg); err != nil {
		return err
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapDispatchPolicy(cfg); err != nil {
		return err
	}
	_, err := mapNotifierConfig(cfg)
	return err
}
