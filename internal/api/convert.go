package api

import (
	"codestory/internal/preflight"
	"codestory/internal/progress"
	"codestory/internal/runs"
	"codestory/internal/story"
)

// FromRun converts a run record to its API representation.
func FromRun(run *runs.Run) Run {
	if run == nil {
		return Run{}
	}
	dto := Run{
		ID:             run.ID,
		Repository:     run.RepoReference,
		IntentText:     run.IntentText,
		PreferredStyle: run.PreferredStyle,
		Stage:          string(run.CurrentStage),
		Progress: RunProgress{
			Percent: run.ProgressPercent,
			Message: run.ProgressMessage,
		},
		ErrorMessage: run.ErrorMessage,
		ErrorKind:    run.ErrorKind,
		Partial:      run.Partial,
	}
	if !run.CreatedAt.IsZero() {
		dto.CreatedAt = run.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !run.UpdatedAt.IsZero() {
		dto.UpdatedAt = run.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if run.CompletedAt != nil && !run.CompletedAt.IsZero() {
		dto.CompletedAt = run.CompletedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromRuns converts a slice of run records into API DTOs.
func FromRuns(items []*runs.Run) []Run {
	if len(items) == 0 {
		return nil
	}
	out := make([]Run, 0, len(items))
	for _, run := range items {
		out = append(out, FromRun(run))
	}
	return out
}

// FromEvent converts a progress event to its API representation.
func FromEvent(evt progress.Event) ProgressEvent {
	dto := ProgressEvent{
		Sequence:  evt.Sequence,
		RunID:     evt.RunID,
		Stage:     evt.Stage,
		Percent:   evt.Percent,
		Message:   evt.Message,
		Terminal:  evt.Terminal,
		Partial:   evt.Partial,
		ErrorKind: evt.ErrorKind,
	}
	if !evt.Timestamp.IsZero() {
		dto.Timestamp = evt.Timestamp.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromEvents converts a slice of progress events into API DTOs.
func FromEvents(events []progress.Event) []ProgressEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]ProgressEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, FromEvent(evt))
	}
	return out
}

// FromAudio converts a synthesis artifact to its API representation.
func FromAudio(audio *story.AudioArtifact) *StoryAudio {
	if audio == nil {
		return nil
	}
	dto := &StoryAudio{
		Success:              audio.Success,
		AudioURL:             audio.AudioURL,
		Chapters:             fromChapterAudio(audio.Chapters),
		TotalDurationSeconds: audio.TotalDurationSeconds,
		Error:                audio.Error,
		PartialChapters:      fromChapterAudio(audio.PartialChapters),
	}
	if audio.VoiceProfile != nil {
		dto.VoiceName = audio.VoiceProfile.Name
	}
	return dto
}

func fromChapterAudio(chapters []story.ChapterAudio) []ChapterAudio {
	if len(chapters) == 0 {
		return nil
	}
	out := make([]ChapterAudio, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, ChapterAudio{
			Number:             ch.Number,
			Title:              ch.Title,
			AudioURL:           ch.AudioURL,
			DurationSeconds:    ch.DurationSeconds,
			StartOffsetSeconds: ch.StartOffsetSeconds,
		})
	}
	return out
}

// FromPreflight converts readiness check results into API DTOs.
func FromPreflight(results []preflight.Result) []PreflightCheck {
	if len(results) == 0 {
		return nil
	}
	out := make([]PreflightCheck, 0, len(results))
	for _, r := range results {
		out = append(out, PreflightCheck{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromHealth flattens run counts into a stable string-keyed map.
func FromHealth(summary runs.HealthSummary) map[string]int {
	return map[string]int{
		"total":     summary.Total,
		"inFlight":  summary.InFlight,
		"completed": summary.Completed,
		"failed":    summary.Failed,
	}
}
