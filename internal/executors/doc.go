// Package executors implements the four pipeline stages.
//
// Intent classifies what the listener wants and proposes a chapter outline.
// Analysis clones and surveys the repository, then extracts story components.
// Narrative writes the chaptered narration script with voice direction.
// Synthesis renders the script to audio chapter by chapter.
//
// Each executor satisfies stage.Executor and is wired into the pipeline
// orchestrator at daemon startup. External clients are injected through small
// interfaces so tests can substitute stubs.
package executors
