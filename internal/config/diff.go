package config

import (
	"strings"

	logx "gw2bot/pkg/logx"
)

// SummarizeConfigChange lists the changed sections and returns log fields
// describing the new values. Secrets are reported as set/unset only.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Token != nt.Token || trim(ot.PollTimeout) != trim(nt.PollTimeout) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", ot.Token != nt.Token),
			logx.String("telegram.poll_timeout", trim(nt.PollTimeout)),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		l := newCfg.Logging
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", l.Level),
			logx.Bool("logging.console", l.Console),
			logx.Bool("logging.file", l.File.Enabled),
			logx.Bool("logging.ops_chat", l.OpsChat.Enabled),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", trim(newCfg.Storage.Driver)),
			logx.String("storage.path", trim(newCfg.Storage.Path)),
		)
	}

	if oldCfg.GameData != newCfg.GameData {
		changed = append(changed, "gamedata")
		attrs = append(attrs, logx.String("gamedata.path", trim(newCfg.GameData.Path)))
	}

	if oldCfg.Dispatch != newCfg.Dispatch {
		d := newCfg.Dispatch
		changed = append(changed, "dispatch")
		attrs = append(attrs,
			logx.String("dispatch.interval", trim(d.Interval)),
			logx.String("dispatch.fire_guard", trim(d.FireGuard)),
			logx.String("dispatch.suppress_window", trim(d.SuppressWindow)),
			logx.Int("dispatch.workers", d.Workers),
		)
	}

	if oldCfg.Notifier != newCfg.Notifier {
		n := newCfg.Notifier
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Int("notifier.rate_per_sec", n.RatePerSec),
			logx.Int("notifier.retry_max", n.RetryMax),
			logx.String("notifier.timeout", trim(n.Timeout)),
		)
	}
	return changed, attrs
}

// RestartRequired reports sections that only take effect after a restart.
func RestartRequired(oldCfg, newCfg *Config) []string {
	if oldCfg == nil || newCfg == nil {
		return nil
	}
	var out []string
	if oldCfg.Telegram != newCfg.Telegram {
		out = append(out, "telegram")
	}
	if oldCfg.Storage != newCfg.Storage {
		out = append(out, "storage")
	}
	if oldCfg.GameData != newCfg.GameData {
		out = append(out, "gamedata")
	}
	return out
}

func trim(s string) string { return strings.TrimSpace(s) }
