package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsplaces/internal/eventbus"
	rtsup "newsplaces/internal/runtime/supervisor"
	"newsplaces/internal/task/engine"
	"newsplaces/internal/task/schedule"
	logx "newsplaces/pkg/logx"
)

type Option func(*Service)

// WithClock replaces time.Now. Evaluators keep their own clocks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a scheduler. runs and bus may be nil; without runs, last-run
// times live in memory only.
func New(cfg Config, eng Enqueuer, runs RunStore, log logx.Logger, bus eventbus.Bus, opts ...Option) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		cfg:         cfg,
		log:         log,
		bus:         bus,
		eng:         eng,
		runs:        runs,
		now:         time.Now,
		wake:        make(chan struct{}, 1),
		lastEnqWarn: map[string]time.Time{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds a periodic task. Names must be unique.
func (s *Service) Register(name string, eval schedule.Evaluator, timeout time.Duration, job func(ctx context.Context) error) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("schedule name required")
	}
	if eval == nil || job == nil {
		return fmt.Errorf("schedule %s: evaluator and job are required", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.name == name {
			return fmt.Errorf("schedule %s already registered", name)
		}
	}
	s.entries = append(s.entries, &entry{name: name, eval: eval, timeout: timeout, job: job})
	s.log.Debug("schedule registered", logx.String("schedule", name), logx.String("kind", string(eval.Status().Kind)))
	return nil
}

// Enabled reports the current config flag.
func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.Wake()
}

// Wake makes a running loop re-evaluate immediately.
func (s *Service) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start runs the loop in the background until Stop or ctx cancellation.
// A panicking pass restarts the loop with backoff.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup != nil {
		return
	}
	s.sup = rtsup.New(ctx, rtsup.WithLogger(s.log))
	s.sup.GoRestart("scheduler.loop", func(c context.Context) error {
		var events <-chan eventbus.Event
		if s.bus != nil {
			ch, unsub := s.bus.Subscribe(8, eventbus.SettingChange)
			defer unsub()
			events = ch
		}
		s.loop(c, events)
		return c.Err()
	})
	s.log.Info("scheduler started", logx.Int("schedules", len(s.entries)))
}

func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	s.mu.Lock()
	sup := s.sup
	s.sup = nil
	s.mu.Unlock()
	if sup == nil {
		return
	}
	if err := sup.Stop(ctx); err != nil && ctx.Err() != nil {
		s.log.Warn("scheduler stop timed out", logx.Err(ctx.Err()))
		return
	}
	s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
}

func (s *Service) loop(ctx context.Context, events <-chan eventbus.Event) {
	for {
		d := s.Tick(ctx)
		s.log.Trace("scheduler sleeping", logx.Duration("for", d))

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case ev, ok := <-events:
			timer.Stop()
			if !ok {
				events = nil
				continue
			}
			s.log.Debug("setting changed; re-evaluating schedules", logx.Any("key", ev.Data))
		case <-timer.C:
		}
	}
}

func (s *Service) dispatch(e *entry) error {
	return s.eng.Enqueue(engine.Task{
		Name:    e.name,
		Timeout: e.timeout,
		Run:     e.job,
		Opt:     e.opt,
	})
}
