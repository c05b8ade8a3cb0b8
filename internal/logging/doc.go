// Package logging assembles structured slog loggers used across WizQueue.
//
// It owns the console and JSON handlers, picks between them automatically
// when the format is "auto" (console on a terminal, JSON otherwise), and
// exposes context-aware helpers that tag log lines with request IDs, invoice
// IDs, and page numbers. A no-op logger is provided for tests and wiring code
// that cannot fail.
package logging
