package app

import (
	"context"
	"fmt"
	"time"

	"newsplaces/internal/config"
	"newsplaces/internal/eventbus"
	"newsplaces/internal/mail"
	"newsplaces/internal/news"
	"newsplaces/internal/places"
	rtsup "newsplaces/internal/runtime/supervisor"
	"newsplaces/internal/settings"
	"newsplaces/internal/storage"
	"newsplaces/internal/task/engine"
	"newsplaces/internal/task/scheduler"
	"newsplaces/internal/weather"
	logx "newsplaces/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	db   *storage.DB
	loc  *time.Location

	settings *settings.Service
	mailer   *mail.Switch
	news     *news.Service
	places   *places.Service

	engine *engine.Service
	sched  *scheduler.Service
}

// NewApp loads the config, opens storage and builds every service. Nothing runs
// until Start; CLI commands use the services directly and then call Close.
func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	a := &App{cfgPath: cfgPath, cfgm: cfgm, logs: logSvc, log: log.With(logx.String("comp", "app")), bus: eventbus.New()}
	if err := a.build(cfg, log); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config, log logx.Logger) error {
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return err
	}
	a.db, err = storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return err
	}

	if a.loc, err = schedulerLocation(cfg); err != nil {
		return err
	}
	lookupTimeout, err := config.ParseDurationField("scheduler.lookup_timeout", cfg.Scheduler.LookupTimeout)
	if err != nil {
		return err
	}

	a.settings = settings.New(nil, a.db, a.bus, log)

	mcfg, err := mapMailConfig(cfg)
	if err != nil {
		return err
	}
	sender, err := mail.New(mcfg, log)
	if err != nil {
		return err
	}
	a.mailer = mail.NewSwitch(sender)
	a.news = news.New(a.db, a.settings, a.mailer, log, news.WithLocation(a.loc))

	wcfg, conc, err := mapWeatherConfig(cfg)
	if err != nil {
		return err
	}
	a.places = places.New(a.db, weather.New(wcfg, log), log, places.WithConcurrency(conc))

	engCfg, err := mapTaskEngineConfig(cfg)
	if err != nil {
		return err
	}
	a.engine = engine.New(engCfg, log.With(logx.String("comp", "taskengine")), a.bus)

	schedCfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		return err
	}
	a.sched = scheduler.New(schedCfg, a.engine, a.db, log.With(logx.String("comp", "scheduler")), a.bus)
	return registerSchedules(a.sched, a.settings, a.loc, lookupTimeout, a.news, a.places)
}

func (a *App) Settings() *settings.Service   { return a.settings }
func (a *App) News() *news.Service           { return a.news }
func (a *App) Places() *places.Service       { return a.places }
func (a *App) Scheduler() *scheduler.Service { return a.sched }
func (a *App) Engine() *engine.Service       { return a.engine }
func (a *App) DB() *storage.DB               { return a.db }
func (a *App) Location() *time.Location      { return a.loc }
func (a *App) Logger() logx.Logger           { return a.log }
func (a *App) Config() *config.ConfigManager { return a.cfgm }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	a.engine.Start(a.sup.Context())
	if a.sched.Enabled() {
		a.sched.Start(a.sup.Context())
	} else {
		a.log.Info("scheduler disabled via config")
	}

	a.sup.GoRestart("taskruns.record", func(c context.Context) error {
		return recordTaskRuns(c, a.bus, a.db, a.log.With(logx.String("comp", "taskruns")))
	})
	a.sup.Go("config.reload", a.reloadLoop)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("systemd.watchdog", func(c context.Context) error {
		runWatchdog(c, a.log)
		return nil
	})

	notifyReady(a.log)
	a.log.Info("app started", logx.String("config", a.cfgPath), logx.String("timezone", a.loc.String()))
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return a.Close()
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	notifyStopping(a.log)

	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("taskengine", 5*time.Second, func(c context.Context) error { a.engine.Stop(c); return nil })
	// Wait for supervised goroutines (config watch/reload, task run recorder).
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	return a.Close()
}

// Close releases storage and log files. Stop calls it.
func (a *App) Close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}
