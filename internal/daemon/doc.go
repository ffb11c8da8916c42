// Package daemon coordinates the long-running CodeStory process.
//
// It wires configuration, run storage, and the pipeline service into a
// single lifecycle with flock-based locking to prevent multiple instances,
// and exposes the HTTP API surface for the CLI. Preflight checks run once at
// startup and their results are served from the status endpoint.
//
// Keep orchestration logic here: individual pipeline stages live in their
// respective packages while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
