// Package services defines shared utilities consumed by the pipeline stage
// executors and external provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline's error taxonomy (fatal vs degrading vs cancelled).
//   - Thin abstractions that keep remote provider calls (LLM, speech
//     synthesis) uniform and testable.
//
// Use these helpers when wiring new executor logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
