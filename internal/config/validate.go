package config

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ParseDurationField parses a Go duration string found at path.
// Empty means zero; negative durations are rejected.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def substituted for zero.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// Validate rejects configs that would fail at runtime. The manager runs it before
// committing a hot-reloaded file, so a bad edit never replaces a working config.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required")
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		return err
	}

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if _, err := ParseDurationField("scheduler.max_loop_interval", cfg.Scheduler.MaxLoopInterval); err != nil {
		return err
	}
	if _, err := ParseDurationField("scheduler.lookup_timeout", cfg.Scheduler.LookupTimeout); err != nil {
		return err
	}

	if te := cfg.TaskEngine; te != nil {
		if te.Workers < 0 {
			return fmt.Errorf("task_engine.workers must be >= 0")
		}
		if te.QueueSize < 0 {
			return fmt.Errorf("task_engine.queue_size must be >= 0")
		}
		if te.HistorySize < 0 {
			return fmt.Errorf("task_engine.history_size must be >= 0")
		}
		if te.RetryMax < 0 {
			return fmt.Errorf("task_engine.retry_max must be >= 0")
		}
		for path, raw := range map[string]string{
			"task_engine.default_timeout": te.DefaultTimeout,
			"task_engine.retry_base":      te.RetryBase,
			"task_engine.retry_max_delay": te.RetryMaxDelay,
		} {
			if _, err := ParseDurationField(path, raw); err != nil {
				return err
			}
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Mail.Backend)) {
	case "", "log":
	case "smtp":
		if strings.TrimSpace(cfg.Mail.Host) == "" {
			return fmt.Errorf("mail.host is required for the smtp backend")
		}
	default:
		return fmt.Errorf("mail.backend: unknown %q (use smtp or log)", cfg.Mail.Backend)
	}
	if from := strings.TrimSpace(cfg.Mail.From); from != "" {
		if _, err := mail.ParseAddress(from); err != nil {
			return fmt.Errorf("mail.from: %w", err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Mail.TLS)) {
	case "", "opportunistic", "mandatory", "none":
	default:
		return fmt.Errorf("mail.tls: unknown %q", cfg.Mail.TLS)
	}
	if cfg.Mail.Port < 0 || cfg.Mail.Port > 65535 {
		return fmt.Errorf("mail.port out of range")
	}
	if _, err := ParseDurationField("mail.timeout", cfg.Mail.Timeout); err != nil {
		return err
	}

	if _, err := ParseDurationField("weather.timeout", cfg.Weather.Timeout); err != nil {
		return err
	}
	if cfg.Weather.RatePerSec < 0 {
		return fmt.Errorf("weather.rate_per_sec must be >= 0")
	}
	if cfg.Weather.Concurrency < 0 {
		return fmt.Errorf("weather.concurrency must be >= 0")
	}
	return nil
}
