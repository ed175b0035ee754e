package app

import (
	"fmt"
	"strings"
	"time"

	"newsplaces/internal/config"
	"newsplaces/internal/mail"
	"newsplaces/internal/storage"
	"newsplaces/internal/task/engine"
	"newsplaces/internal/task/scheduler"
	"newsplaces/internal/weather"
	logx "newsplaces/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	path := strings.TrimSpace(cfg.Storage.Path)
	if path == "" {
		return storage.Config{}, fmt.Errorf("storage.path is required")
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Path: path, BusyTimeout: busy}, nil
}

func mapTaskEngineConfig(cfg *config.Config) (engine.Config, error) {
	te := config.TaskEngineConfig{}
	if cfg.TaskEngine != nil {
		te = *cfg.TaskEngine
	}

	retryMax := te.RetryMax
	if retryMax == 0 {
		retryMax = 3
	}
	defTimeout, err := config.ParseDurationField("task_engine.default_timeout", te.DefaultTimeout)
	if err != nil {
		return engine.Config{}, err
	}
	retryBase, err := config.ParseDurationField("task_engine.retry_base", te.RetryBase)
	if err != nil {
		return engine.Config{}, err
	}
	retryMaxDelay, err := config.ParseDurationField("task_engine.retry_max_delay", te.RetryMaxDelay)
	if err != nil {
		return engine.Config{}, err
	}

	// Zero values are filled in by the engine.
	return engine.Config{
		Workers:        te.Workers,
		QueueSize:      te.QueueSize,
		DefaultTimeout: defTimeout,
		HistorySize:    te.HistorySize,
		RetryMax:       retryMax,
		RetryBase:      retryBase,
		RetryMaxDelay:  retryMaxDelay,
	}, nil
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	maxLoop, err := config.ParseDurationField("scheduler.max_loop_interval", cfg.Scheduler.MaxLoopInterval)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{Enabled: cfg.Scheduler.Enabled, MaxLoopInterval: maxLoop}, nil
}

// schedulerLocation resolves scheduler.timezone; empty means the host zone.
func schedulerLocation(cfg *config.Config) (*time.Location, error) {
	tz := strings.TrimSpace(cfg.Scheduler.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
	}
	return loc, nil
}

func mapMailConfig(cfg *config.Config) (mail.Config, error) {
	timeout, err := config.ParseDurationField("mail.timeout", cfg.Mail.Timeout)
	if err != nil {
		return mail.Config{}, err
	}
	m := cfg.Mail
	return mail.Config{
		Backend:  m.Backend,
		From:     strings.TrimSpace(m.From),
		Host:     strings.TrimSpace(m.Host),
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		TLS:      m.TLS,
		Timeout:  timeout,
	}, nil
}

func mapWeatherConfig(cfg *config.Config) (weather.Config, int, error) {
	timeout, err := config.ParseDurationField("weather.timeout", cfg.Weather.Timeout)
	if err != nil {
		return weather.Config{}, 0, err
	}
	return weather.Config{
		BaseURL:    cfg.Weather.BaseURL,
		Timeout:    timeout,
		RatePerSec: cfg.Weather.RatePerSec,
	}, cfg.Weather.Concurrency, nil
}
