package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jpillora/backoff"

	"newsplaces/internal/eventbus"
	logx "newsplaces/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan queuedTask) {
	for {
		// A closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case qt := <-queue:
			s.inFlight.Add(1)
			s.execOne(ctx, stopCh, qt)
			s.inFlight.Add(-1)
		}
	}
}

func (s *Service) execOne(ctx context.Context, stopCh <-chan struct{}, qt queuedTask) {
	if qt.state != nil {
		defer qt.state.release()
	}
	start := time.Now()
	queueDelay := start.Sub(qt.enqueuedAt)
	if queueDelay < 0 {
		queueDelay = 0
	}
	name := qt.task.Name
	log := s.log.With(logx.String("task", name), logx.String("id", qt.task.ID))

	log.Debug("task started", logx.Duration("queue_delay", queueDelay))
	s.publish(eventbus.TaskStarted, TaskEvent{ID: qt.task.ID, Name: name, Started: start, QueueDelay: queueDelay})

	b := &backoff.Backoff{Min: qt.opt.RetryBase, Max: qt.opt.RetryMaxDelay, Factor: 2, Jitter: true}
	maxAttempts := 1 + qt.opt.RetryMax

	var (
		err      error
		attempts int
	)
attemptLoop:
	for attempts = 1; attempts <= maxAttempts; attempts++ {
		err = s.runOnce(ctx, qt, log)
		if err == nil || IsNoRetry(err) || attempts == maxAttempts {
			break
		}

		delay := b.Duration()
		if hint, ok := retryHint(err); ok {
			delay = min(hint, qt.opt.RetryMaxDelay)
		}
		log.Debug("task retry scheduled", logx.Int("attempt", attempts+1), logx.Duration("delay", delay), logx.Err(err))
		s.publish(eventbus.TaskRetry, TaskEvent{ID: qt.task.ID, Name: name, Started: start, Attempts: attempts, Error: err.Error()})

		tmr := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			tmr.Stop()
			err = ctx.Err()
			break attemptLoop
		case <-stopCh:
			tmr.Stop()
			err = ErrStopped
			break attemptLoop
		case <-tmr.C:
		}
	}

	dur := time.Since(start)
	item := HistoryItem{ID: qt.task.ID, Name: name, Started: start, QueueDelay: queueDelay, Duration: dur, Attempts: attempts}
	ev := TaskEvent{ID: qt.task.ID, Name: name, Started: start, QueueDelay: queueDelay, Duration: dur, Attempts: attempts}
	if err != nil {
		item.Error = err.Error()
		ev.Error = item.Error
		log.Warn("task failed", logx.Err(err), logx.Duration("dur", dur), logx.Int("attempts", attempts))
		s.publish(eventbus.TaskFailed, ev)
	} else {
		log.Info("task completed", logx.Duration("dur", dur), logx.Int("attempts", attempts))
		s.publish(eventbus.TaskFinished, ev)
	}
	s.record(item)
}

// runOnce runs a single attempt under the task timeout, turning panics into errors.
func (s *Service) runOnce(ctx context.Context, qt queuedTask, log logx.Logger) (err error) {
	runCtx := ctx
	if qt.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, qt.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = NoRetry(fmt.Errorf("panic: %v", r))
		}
	}()
	err = qt.task.Run(runCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && runCtx.Err() != nil && ctx.Err() == nil {
		err = fmt.Errorf("timed out after %s: %w", qt.timeout, err)
	}
	return err
}
