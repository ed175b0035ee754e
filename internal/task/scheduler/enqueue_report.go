package scheduler

import (
	"errors"
	"time"

	"newsplaces/internal/task/engine"
	logx "newsplaces/pkg/logx"
)

const enqueueWarnThrottle = time.Minute

func (s *Service) reportEnqueueError(name string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, engine.ErrOverlapSkip) {
		s.log.Debug("schedule trigger skipped", logx.String("schedule", name), logx.Err(err))
		return
	}

	now := s.now()
	s.enqMu.Lock()
	last := s.lastEnqWarn[name]
	if !last.IsZero() && now.Sub(last) < enqueueWarnThrottle {
		s.enqMu.Unlock()
		return
	}
	s.lastEnqWarn[name] = now
	s.enqMu.Unlock()

	// Queue full / stopped are important but retried every pass.
	s.log.Warn("schedule failed to enqueue task", logx.String("schedule", name), logx.Err(err))
}
