// Package logging provides the slog construction and helper layer used across
// the daemon, pipeline, and CLI.
//
// It standardizes handler setup (console or JSON, multi-writer output paths),
// exposes typed attribute helpers, and derives structured fields (run id,
// stage, correlation id) from context so every component logs the same shape.
package logging
