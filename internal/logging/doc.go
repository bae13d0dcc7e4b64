// Package logging assembles structured slog loggers and formatting helpers used
// by the dawpresence emitter, daemon, and CLI.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes field keys so every component tags lines the same way
// (component, session_id, event_type, error_hint, impact). The package also
// provides a no-op logger for tests and for the emitter when its log file
// cannot be opened.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape and routing guarantees as the rest of the
// system.
package logging
