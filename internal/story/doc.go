// Package story defines the typed artifacts handed between pipeline stages
// and the validation gates applied before each handoff.
//
// Artifacts are immutable once produced: each stage returns exactly one
// artifact that the next stage consumes. The gates are pure predicates; they
// never mutate an artifact and report the first violated invariant by name.
package story
