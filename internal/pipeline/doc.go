// Package pipeline drives runs through the four stages that turn a
// repository into a narrated audio story.
//
// The Orchestrator owns one run at a time: it announces each stage on the
// progress hub, invokes the registered executor under a per-stage timeout,
// persists the resulting artifact, and applies the validation gate before
// advancing. Failures consult a fixed recovery table - some analysis
// failures earn a single retry with adjusted packaging, voice quota
// exhaustion degrades the result instead of failing it, and everything else
// terminates the run with a classified error.
//
// The Service wraps the orchestrator with the three operations callers use:
// StartRun, SubscribeProgress, and GetResult, executing runs asynchronously
// on a bounded worker pool.
package pipeline
