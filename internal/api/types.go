package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Run describes a pipeline run in a transport-friendly format.
type Run struct {
	ID             string      `json:"id"`
	Repository     string      `json:"repository"`
	IntentText     string      `json:"intentText,omitempty"`
	PreferredStyle string      `json:"preferredStyle,omitempty"`
	Stage          string      `json:"stage"`
	Progress       RunProgress `json:"progress"`
	ErrorMessage   string      `json:"errorMessage,omitempty"`
	ErrorKind      string      `json:"errorKind,omitempty"`
	Partial        bool        `json:"partial"`
	CreatedAt      string      `json:"createdAt,omitempty"`
	UpdatedAt      string      `json:"updatedAt,omitempty"`
	CompletedAt    string      `json:"completedAt,omitempty"`
}

// RunProgress captures checkpoint progress for a run.
type RunProgress struct {
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// ProgressEvent is one entry from a run's progress stream.
type ProgressEvent struct {
	Sequence  uint64 `json:"seq"`
	RunID     string `json:"runId"`
	Stage     string `json:"stage"`
	Percent   int    `json:"percent"`
	Message   string `json:"message"`
	Terminal  bool   `json:"terminal"`
	Partial   bool   `json:"partial,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChapterAudio describes one synthesized chapter.
type ChapterAudio struct {
	Number             int     `json:"number"`
	Title              string  `json:"title"`
	AudioURL           string  `json:"audioUrl"`
	DurationSeconds    float64 `json:"durationSeconds"`
	StartOffsetSeconds float64 `json:"startOffsetSeconds"`
}

// StoryAudio is the synthesized story delivered with a completed run.
type StoryAudio struct {
	Success              bool           `json:"success"`
	AudioURL             string         `json:"audioUrl,omitempty"`
	Chapters             []ChapterAudio `json:"chapters"`
	TotalDurationSeconds float64        `json:"totalDurationSeconds"`
	VoiceName            string         `json:"voiceName,omitempty"`
	Error                string         `json:"error,omitempty"`
	PartialChapters      []ChapterAudio `json:"partialChapters,omitempty"`
}

// PreflightCheck mirrors a single readiness check outcome.
type PreflightCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool             `json:"running"`
	PID          int              `json:"pid"`
	RunsDBPath   string           `json:"runsDbPath"`
	LockFilePath string           `json:"lockFilePath"`
	ActiveRuns   int              `json:"activeRuns"`
	RunCounts    map[string]int   `json:"runCounts"`
	Preflight    []PreflightCheck `json:"preflight"`
}

// StartRunRequest is the POST body for creating a run.
type StartRunRequest struct {
	Repository string `json:"repository"`
	Intent     string `json:"intent,omitempty"`
	Style      string `json:"style,omitempty"`
}

// RunListResponse wraps a collection of runs for API responses.
type RunListResponse struct {
	Runs []Run `json:"runs"`
}

// ResultResponse reports a run's outcome, pending indicator included.
type ResultResponse struct {
	Run     Run         `json:"run"`
	Pending bool        `json:"pending"`
	Audio   *StoryAudio `json:"audio,omitempty"`
}

// NotifyTestResponse reports the outcome of a test notification.
type NotifyTestResponse struct {
	Sent   bool   `json:"sent"`
	Detail string `json:"detail,omitempty"`
}

// EventStreamResponse wraps buffered progress events plus a resume cursor.
type EventStreamResponse struct {
	Events []ProgressEvent `json:"events"`
	Next   uint64          `json:"next"`
}
