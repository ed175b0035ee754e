package config

// Config is the process configuration loaded from a JSON, YAML or TOML file.
//
// It holds deployment concerns only. Values administrators tune at runtime
// (email send time, weather fetch interval, digest wording) live in the
// settings store instead, so they can change without touching this file.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`

	// TaskEngine controls execution of dispatched jobs.
	// If omitted, engine defaults apply.
	TaskEngine *TaskEngineConfig `json:"task_engine,omitempty"`

	Mail    MailConfig    `json:"mail"`
	Weather WeatherConfig `json:"weather"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the SQLite database.
//
// Example:
//
//	"storage": { "path": "./data/newsplaces.db", "busy_timeout": "5s" }
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// SchedulerConfig controls the periodic trigger loop.
//
// Defaults (when fields are omitted/zero):
//   - timezone: local time
//   - max_loop_interval: "1m"
//   - lookup_timeout: "2s"
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`

	// Trigger timezone, IANA name (e.g. "Europe/Moscow"). Calendar schedules fire
	// at wall-clock times in this zone and the digest's "today" uses it too.
	Timezone string `json:"timezone,omitempty"`

	// MaxLoopInterval caps how long the loop sleeps between due-checks, which bounds
	// how late a settings change made from another process is noticed.
	MaxLoopInterval string `json:"max_loop_interval,omitempty"`

	// LookupTimeout bounds a single settings read during a due-check.
	LookupTimeout string `json:"lookup_timeout,omitempty"`
}

// TaskEngineConfig controls the task execution engine.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - workers: 2
//   - queue_size: 64
//   - default_timeout: "0s" (disabled)
//   - history_size: 200
//   - retry_max: 3
//   - retry_base: "500ms"
//   - retry_max_delay: "15s"
type TaskEngineConfig struct {
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	DefaultTimeout string `json:"default_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
	RetryMax       int    `json:"retry_max,omitempty"`
	RetryBase      string `json:"retry_base,omitempty"`
	RetryMaxDelay  string `json:"retry_max_delay,omitempty"`
}

// MailConfig selects how the daily digest is delivered.
//
// Backend values:
//   - "smtp": deliver through Host:Port
//   - "log": write the message to the log (development)
type MailConfig struct {
	Backend  string `json:"backend"`
	From     string `json:"from"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"` // do not log
	// TLS is "opportunistic" (default), "mandatory" or "none".
	TLS     string `json:"tls,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

// WeatherConfig controls the Open-Meteo client used by the weather fetch job.
type WeatherConfig struct {
	BaseURL     string `json:"base_url,omitempty"` // default: https://api.open-meteo.com
	Timeout     string `json:"timeout,omitempty"`  // default: "10s"
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
}
