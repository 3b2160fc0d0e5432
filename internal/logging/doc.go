// Package logging assembles structured slog loggers and formatting helpers used
// across the reconciler.
//
// It owns the console and JSON handlers, the tee that mirrors output into the
// shared log file and per-run logs, and context-aware helpers that tag log
// lines with run IDs, record keys, and controller states. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
