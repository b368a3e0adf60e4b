// Package logging assembles structured slog loggers and formatting helpers
// used across mirror components.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes standardized attribute helpers so pipeline code tags log lines
// with consistent component, event type, and hint fields. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
