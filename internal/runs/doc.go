// Package runs persists pipeline runs and their stage artifacts in SQLite.
//
// A run row tracks the state machine position, progress, and terminal error
// of one end-to-end execution. Artifact rows are keyed by (run_id, stage);
// re-running a stage overwrites the prior artifact under the same key. Size
// ceilings are enforced on write, truncating least-important entries before
// giving up.
package runs
