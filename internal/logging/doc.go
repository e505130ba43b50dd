// Package logging assembles structured slog loggers and formatting helpers used
// across the logtail daemon and CLI.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so transport code can tag log
// lines with viewer ids and request correlation ids. The console handler
// renders the viewer and file as a compact subject instead of raw fields.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits the same keys (component, viewer_id, file, event_type).
package logging
