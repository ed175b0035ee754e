package config

import (
	"reflect"
	"sort"
	"strings"

	logx "newsplaces/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging (never includes secrets like the SMTP password).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 20)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Storage changes only take effect after a restart; still worth surfacing.
	if strings.TrimSpace(oldCfg.Storage.Path) != strings.TrimSpace(newCfg.Storage.Path) ||
		strings.TrimSpace(oldCfg.Storage.BusyTimeout) != strings.TrimSpace(newCfg.Storage.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.path", strings.TrimSpace(newCfg.Storage.Path)),
			logx.String("storage.busy_timeout", strings.TrimSpace(newCfg.Storage.BusyTimeout)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
			logx.String("scheduler.max_loop_interval", strings.TrimSpace(newCfg.Scheduler.MaxLoopInterval)),
		)
	}

	oTE := derefTaskEngine(oldCfg.TaskEngine)
	nTE := derefTaskEngine(newCfg.TaskEngine)
	if (oldCfg.TaskEngine != nil) != (newCfg.TaskEngine != nil) || oTE != nTE {
		changed = append(changed, "task_engine")
		attrs = append(attrs,
			logx.Bool("task_engine.present", newCfg.TaskEngine != nil),
			logx.Int("task_engine.workers", nTE.Workers),
			logx.Int("task_engine.queue_size", nTE.QueueSize),
			logx.String("task_engine.default_timeout", strings.TrimSpace(nTE.DefaultTimeout)),
			logx.Int("task_engine.retry_max", nTE.RetryMax),
		)
	}

	// Mail (never log password)
	oM, nM := oldCfg.Mail, newCfg.Mail
	if oM.Backend != nM.Backend || oM.From != nM.From || oM.Host != nM.Host || oM.Port != nM.Port ||
		oM.Username != nM.Username || oM.TLS != nM.TLS || oM.Timeout != nM.Timeout ||
		oM.Password != nM.Password {
		changed = append(changed, "mail")
		attrs = append(attrs,
			logx.String("mail.backend", nM.Backend),
			logx.String("mail.host", nM.Host),
			logx.Int("mail.port", nM.Port),
			logx.Bool("mail.auth", strings.TrimSpace(nM.Username) != ""),
			logx.Bool("mail.password_set", nM.Password != ""),
		)
	}

	if oldCfg.Weather != newCfg.Weather {
		changed = append(changed, "weather")
		attrs = append(attrs,
			logx.String("weather.base_url", strings.TrimSpace(newCfg.Weather.BaseURL)),
			logx.Int("weather.rate_per_sec", newCfg.Weather.RatePerSec),
			logx.Int("weather.concurrency", newCfg.Weather.Concurrency),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

func derefTaskEngine(te *TaskEngineConfig) TaskEngineConfig {
	if te == nil {
		return TaskEngineConfig{}
	}
	return *te
}
