package app

import (
	"context"
	"time"

	"newsplaces/internal/eventbus"
	"newsplaces/internal/storage"
	"newsplaces/internal/task/engine"
	logx "newsplaces/pkg/logx"
)

type taskRunWriter interface {
	AppendTaskRun(ctx context.Context, r storage.TaskRun) error
}

// recordTaskRuns persists every finished or failed task execution until ctx ends.
func recordTaskRuns(ctx context.Context, bus eventbus.Bus, w taskRunWriter, log logx.Logger) error {
	events, unsub := bus.Subscribe(64, eventbus.TaskFinished, eventbus.TaskFailed)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			te, ok := ev.Data.(engine.TaskEvent)
			if !ok {
				continue
			}
			run := storage.TaskRun{
				ID:         te.ID,
				Name:       te.Name,
				Status:     "ok",
				Attempts:   te.Attempts,
				Error:      te.Error,
				StartedAt:  te.Started,
				FinishedAt: te.Started.Add(te.Duration),
			}
			if ev.Type == eventbus.TaskFailed {
				run.Status = "failed"
			}

			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := w.AppendTaskRun(wctx, run)
			cancel()
			if err != nil {
				log.Warn("failed to record task run", logx.String("task", te.Name), logx.String("id", te.ID), logx.Err(err))
			}
		}
	}
}
