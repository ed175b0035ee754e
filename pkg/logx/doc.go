// Package logx configures newsplaces' structured logging.
//
// The repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Sinks swappable at runtime when the process config is hot-reloaded
package logx
