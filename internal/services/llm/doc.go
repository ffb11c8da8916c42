// Package llm provides an OpenRouter chat client for structured generation.
//
// This package is used by:
//   - Intent stage: classify listener intent and propose a chapter outline
//   - Analysis stage: extract story components from packaged source code
//   - Narrative stage: write the chaptered narration script
//
// # Request Shape
//
// Every call sends a system prompt and a user prompt with JSON response mode
// enabled, and returns the raw JSON payload produced by the model. Intent and
// analysis calls run at temperature zero for deterministic extraction; the
// narrative call runs at a creative temperature.
//
// # Configuration
//
// Requires api_key, model, and optionally base_url, referer, title, timeout.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: deterministic system/user completion, JSON response.
// Client.CompleteCreative: higher-temperature completion, JSON response.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately. HTTP 402 (credits
// exhausted) is never retried; IsQuota reports it so callers can degrade.
package llm
