// Package storage is the SQLite persistence layer.
//
// One database file holds:
//   - Runtime settings overrides (the Config Store)
//   - News articles with their image blobs
//   - Places and their weather summaries
//   - Scheduler last-run timestamps and task run history
package storage
