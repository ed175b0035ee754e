// Package schedule decides when periodic tasks are due.
//
// Two evaluators are provided:
//   - Calendar fires once a day at a wall-clock time ("H:MM").
//   - Interval fires every H hours M minutes since the last run ("H:MM").
//
// Both re-read their value from a Store on every due-check, so an administrator
// editing the setting changes the cadence on the very next check. Any lookup or
// parse failure makes that check use the evaluator's default instead; the outcome
// of the last read is kept as a Resolution for status output.
//
// The calendar and interval arithmetic is robfig/cron's.
package schedule
