package app

import (
	"context"
	"slices"
	"strings"
	"time"

	"newsplaces/internal/config"
	"newsplaces/internal/mail"
	"newsplaces/internal/weather"
	logx "newsplaces/pkg/logx"
)

// reloadLoop applies hot-reloaded config files. Sections that are wired at
// construction (storage, timezone, lookup timeout) only log that a restart is needed.
func (a *App) reloadLoop(ctx context.Context) error {
	sub := a.cfgm.Subscribe(8)
	defer a.cfgm.Unsubscribe(sub)

	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return nil
		case newCfg, ok := <-sub:
			if !ok {
				return nil
			}
			// Coalesce bursts: only the newest config matters.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			a.applyConfig(ctx, lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	changed := func(s string) bool { return slices.Contains(sections, s) }

	if changed("storage") {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}
	if changed("scheduler") {
		oldS, newS := oldCfg.Scheduler, newCfg.Scheduler
		if strings.TrimSpace(oldS.Timezone) != strings.TrimSpace(newS.Timezone) ||
			strings.TrimSpace(oldS.LookupTimeout) != strings.TrimSpace(newS.LookupTimeout) {
			a.log.Warn("scheduler timezone/lookup_timeout changed; restart required for changes to take effect")
		}
	}

	if changed("logging") {
		a.logs.Apply(mapLoggingConfig(newCfg))
	}

	if changed("task_engine") {
		if engCfg, err := mapTaskEngineConfig(newCfg); err != nil {
			a.log.Warn("invalid task_engine config; keeping previous", logx.Err(err))
		} else {
			a.engine.Apply(ctx, engCfg)
		}
	}

	if changed("scheduler") {
		if schedCfg, err := mapSchedulerConfig(newCfg); err != nil {
			a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
		} else {
			prev := a.sched.Enabled()
			a.sched.Apply(schedCfg)
			switch {
			case prev && !schedCfg.Enabled:
				a.log.Info("scheduler disabled via config")
				stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				a.sched.Stop(stopCtx)
				cancel()
			case !prev && schedCfg.Enabled:
				a.log.Info("scheduler enabled via config")
				a.sched.Start(ctx)
			}
		}
	}

	if changed("mail") {
		mcfg, err := mapMailConfig(newCfg)
		if err == nil {
			var sender mail.Sender
			if sender, err = mail.New(mcfg, a.log); err == nil {
				a.mailer.Set(sender)
			}
		}
		if err != nil {
			a.log.Warn("invalid mail config; keeping previous", logx.Err(err))
		}
	}

	if changed("weather") {
		if wcfg, conc, err := mapWeatherConfig(newCfg); err != nil {
			a.log.Warn("invalid weather config; keeping previous", logx.Err(err))
		} else {
			a.places.SetSource(weather.New(wcfg, a.log))
			a.places.SetConcurrency(conc)
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}
