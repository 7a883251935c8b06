// Package logging assembles structured slog loggers and formatting helpers used
// across ntfybridge.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing (including size-based rotation of file outputs), and exposes
// context-aware helpers so relay code can tag log lines with the topic and
// message identifier being processed. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
package logging
