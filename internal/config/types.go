package config

// Config is the on-disk configuration. Durations are Go duration strings
// ("500ms", "10s", "2m"); empty strings select the component default.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	GameData GameDataConfig `json:"gamedata"`
	Dispatch DispatchConfig `json:"dispatch"`
	Notifier NotifierConfig `json:"notifier"`
}

type TelegramConfig struct {
	Token       string `json:"token" env:"TELEGRAM_TOKEN"`
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level   string         `json:"level" env:"LOG_LEVEL"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	OpsChat LoggingOpsChat `json:"ops_chat"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingOpsChat forwards warnings and errors to an operator chat.
type LoggingOpsChat struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig selects the reminder store.
//
//	"storage": { "driver": "sqlite", "path": "./gw2bot.db" }
//
// driver is one of "memory" (default), "sqlite" or "none".
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path" env:"STORAGE_PATH"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// GameDataConfig points at an alternative boss/map table. Empty uses the
// embedded one.
type GameDataConfig struct {
	Path string `json:"path,omitempty"`
}

type DispatchConfig struct {
	Interval        string `json:"interval"`
	FireGuard       string `json:"fire_guard"`
	SuppressWindow  string `json:"suppress_window"`
	DeliveryTimeout string `json:"delivery_timeout"`
	Workers         int    `json:"workers"`
}

type NotifierConfig struct {
	RatePerSec    int    `json:"rate_per_sec"`
	RetryMax      int    `json:"retry_max"`
	RetryBase     string `json:"retry_base"`
	RetryMaxDelay string `json:"retry_max_delay"`
	Timeout       string `json:"timeout"`
}
