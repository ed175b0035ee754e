// Package scheduler runs the periodic trigger loop.
//
// Each registered entry pairs a task with a schedule.Evaluator. On every pass the
// loop asks each evaluator whether its task is due given the entry's last run,
// hands due tasks to the task engine, and records the new last-run time. It then
// sleeps until the earliest next check, capped by MaxLoopInterval so that setting
// changes made by another process are noticed. Changes published on the event
// bus wake the loop early.
//
// Execution (workers, retries, timeouts) belongs to internal/task/engine.
package scheduler
