package scheduler

import (
	"context"
	"errors"
	"time"

	"newsplaces/internal/task/engine"
	logx "newsplaces/pkg/logx"
)

// Tick runs one pass: every due entry is dispatched and its last run recorded.
// It returns how long to sleep before the next pass.
func (s *Service) Tick(ctx context.Context) time.Duration {
	s.mu.Lock()
	cfg := s.cfg
	entries := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	maxSleep := cfg.MaxLoopInterval
	if maxSleep <= 0 {
		maxSleep = defaultMaxLoopInterval
	}
	if !cfg.Enabled {
		return maxSleep
	}

	sleep := maxSleep
	for _, e := range entries {
		if ctx.Err() != nil {
			return sleep
		}
		delay := s.tickEntry(ctx, e)
		if delay < sleep {
			sleep = delay
		}
	}
	if sleep < minLoopInterval {
		sleep = minLoopInterval
	}
	return sleep
}

func (s *Service) tickEntry(ctx context.Context, e *entry) time.Duration {
	s.ensureLoaded(ctx, e, true)

	s.mu.Lock()
	last := e.lastRun
	s.mu.Unlock()

	due, delay := e.eval.IsDue(ctx, last)
	s.mu.Lock()
	e.lastDue = due
	e.nextCheck = delay
	s.mu.Unlock()
	if !due {
		return delay
	}

	err := s.dispatch(e)
	switch {
	case err == nil:
		s.log.Info("schedule triggered", logx.String("schedule", e.name), logx.Time("last_run", last), logx.Duration("next_check", delay))
	case errors.Is(err, engine.ErrOverlapSkip):
		// Previous run still busy; this occurrence is consumed.
	default:
		s.setLastErr(e, err)
		s.reportEnqueueError(e.name, err)
		// Not recorded as run: the next pass retries.
		return defaultRetryDelay
	}

	now := s.now()
	s.mu.Lock()
	e.lastRun = now
	e.lastErr = ""
	e.dispatched++
	s.mu.Unlock()
	if s.runs != nil {
		if perr := s.runs.SetLastRun(ctx, e.name, now); perr != nil {
			s.log.Warn("failed to persist last run", logx.String("schedule", e.name), logx.Err(perr))
		}
	}
	return delay
}

const defaultRetryDelay = 5 * time.Second

// ensureLoaded fills the entry's last run from the RunStore once. An entry that
// never ran starts with last run = now, which is recorded when persist is set.
// Without persist the entry stays unloaded so the loop still seeds it later.
func (s *Service) ensureLoaded(ctx context.Context, e *entry, persist bool) {
	s.mu.Lock()
	loaded := e.loaded
	s.mu.Unlock()
	if loaded {
		return
	}

	var (
		last time.Time
		ok   bool
	)
	if s.runs != nil {
		var err error
		last, ok, err = s.runs.LastRun(ctx, e.name)
		if err != nil {
			// Try again next pass rather than resetting the schedule.
			s.log.Warn("failed to load last run", logx.String("schedule", e.name), logx.Err(err))
			s.mu.Lock()
			if e.lastRun.IsZero() {
				e.lastRun = s.now()
			}
			s.mu.Unlock()
			return
		}
	}
	if !ok {
		last = s.now()
		if !persist {
			s.mu.Lock()
			e.lastRun = last
			s.mu.Unlock()
			return
		}
		if s.runs != nil {
			if err := s.runs.SetLastRun(ctx, e.name, last); err != nil {
				s.log.Warn("failed to persist initial last run", logx.String("schedule", e.name), logx.Err(err))
			}
		}
	}

	s.mu.Lock()
	e.lastRun = last
	e.loaded = true
	s.mu.Unlock()
}

func (s *Service) setLastErr(e *entry, err error) {
	s.mu.Lock()
	e.lastErr = err.Error()
	s.mu.Unlock()
}

// Preview evaluates every entry against the current settings without dispatching
// anything. Operator tooling uses it to show what the loop would do.
func (s *Service) Preview(ctx context.Context) []EntryInfo {
	s.mu.Lock()
	entries := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	out := make([]EntryInfo, 0, len(entries))
	for _, e := range entries {
		s.ensureLoaded(ctx, e, false)
		s.mu.Lock()
		last := e.lastRun
		s.mu.Unlock()

		due, delay := e.eval.IsDue(ctx, last)
		s.mu.Lock()
		e.lastDue = due
		e.nextCheck = delay
		s.mu.Unlock()
		out = append(out, s.entryInfo(e))
	}
	return out
}
