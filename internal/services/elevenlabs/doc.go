// Package elevenlabs provides a text-to-speech client for chapter narration.
//
// This package is used by the synthesis stage to turn chapter scripts into
// MP3 audio. Each request synthesizes one script segment with a configured
// voice and voice settings, and the segment byte stream is returned to the
// caller for assembly.
//
// # Quota Handling
//
// The API rejects requests with quota_exceeded once the subscription's
// character budget is spent. IsQuota reports those failures so the synthesis
// stage can keep whatever chapters already rendered and degrade instead of
// failing the run.
//
// # Retry Behaviour
//
// Transient failures (HTTP 429/5xx, network timeouts) are retried with
// exponential backoff. Quota failures are never retried.
package elevenlabs
