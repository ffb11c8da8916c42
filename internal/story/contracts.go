package story

import "strings"

// IntentCategory classifies what the listener wants out of the story.
type IntentCategory string

const (
	CategoryOnboarding   IntentCategory = "onboarding"
	CategoryArchitecture IntentCategory = "architecture"
	CategoryFeature      IntentCategory = "feature"
	CategoryDebugging    IntentCategory = "debugging"
	CategoryReview       IntentCategory = "review"
)

// ParseIntentCategory converts a string into a known IntentCategory.
func ParseIntentCategory(value string) (IntentCategory, bool) {
	normalized := IntentCategory(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case CategoryOnboarding, CategoryArchitecture, CategoryFeature, CategoryDebugging, CategoryReview:
		return normalized, true
	}
	return "", false
}

// ExpertiseLevel describes the listener's technical background.
type ExpertiseLevel string

const (
	ExpertiseBeginner     ExpertiseLevel = "beginner"
	ExpertiseIntermediate ExpertiseLevel = "intermediate"
	ExpertiseExpert       ExpertiseLevel = "expert"
)

// ParseExpertiseLevel converts a string into a known ExpertiseLevel.
func ParseExpertiseLevel(value string) (ExpertiseLevel, bool) {
	normalized := ExpertiseLevel(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case ExpertiseBeginner, ExpertiseIntermediate, ExpertiseExpert:
		return normalized, true
	}
	return "", false
}

// NarrativeStyle selects the voice and structure of the generated story.
type NarrativeStyle string

const (
	StyleFiction     NarrativeStyle = "fiction"
	StyleDocumentary NarrativeStyle = "documentary"
	StyleTutorial    NarrativeStyle = "tutorial"
	StylePodcast     NarrativeStyle = "podcast"
	StyleTechnical   NarrativeStyle = "technical"
)

// DefaultStyle is substituted when a requested style is unknown or
// unsupported by the narrative executor.
const DefaultStyle = StyleDocumentary

// ParseStyle converts a string into a known NarrativeStyle.
func ParseStyle(value string) (NarrativeStyle, bool) {
	normalized := NarrativeStyle(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case StyleFiction, StyleDocumentary, StyleTutorial, StylePodcast, StyleTechnical:
		return normalized, true
	}
	return "", false
}

// ComponentType categorizes a key component found during analysis.
type ComponentType string

const (
	ComponentClass    ComponentType = "class"
	ComponentModule   ComponentType = "module"
	ComponentFunction ComponentType = "function"
	ComponentEndpoint ComponentType = "endpoint"
)

// Importance ranks how central a component is to the codebase.
type Importance string

const (
	ImportanceCore       Importance = "core"
	ImportanceSupporting Importance = "supporting"
	ImportanceUtility    Importance = "utility"
)

// Transition describes how a chapter's audio hands off to the next.
type Transition string

const (
	TransitionFade    Transition = "fade"
	TransitionSilence Transition = "silence"
	TransitionMusic   Transition = "music"
)

// Target duration bounds for a story, in minutes.
const (
	MinTargetDurationMinutes = 5
	MaxTargetDurationMinutes = 30
)

// ClampTargetDuration forces a requested duration into the supported range.
func ClampTargetDuration(minutes int) int {
	if minutes < MinTargetDurationMinutes {
		return MinTargetDurationMinutes
	}
	if minutes > MaxTargetDurationMinutes {
		return MaxTargetDurationMinutes
	}
	return minutes
}

// ChapterOutline is the preliminary chapter structure proposed during intent
// elicitation, before the repository has been analyzed.
type ChapterOutline struct {
	Title            string `json:"title"`
	Focus            string `json:"focus"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

// IntentArtifact is the output of the intent stage.
type IntentArtifact struct {
	RepoReference         string           `json:"repo_reference"`
	IntentCategory        IntentCategory   `json:"intent_category"`
	ExpertiseLevel        ExpertiseLevel   `json:"expertise_level"`
	FocusAreas            []string         `json:"focus_areas"`
	RecommendedStyle      NarrativeStyle   `json:"recommended_style"`
	TargetDurationMinutes int              `json:"target_duration_minutes"`
	ChapterOutline        []ChapterOutline `json:"chapter_outline"`
}

// ComponentInfo identifies a key component of the analyzed repository.
type ComponentInfo struct {
	Name       string        `json:"name"`
	Type       ComponentType `json:"type"`
	FilePath   string        `json:"file_path"`
	Purpose    string        `json:"purpose"`
	Importance Importance    `json:"importance"`
}

// CodeCharacter personifies a code entity for narrative use.
type CodeCharacter struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
	FilePath    string `json:"file_path"`
}

// ChapterSuggestion is a chapter proposed from code analysis.
type ChapterSuggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	KeyFiles    []string `json:"key_files"`
	Concepts    []string `json:"concepts"`
}

// StoryComponents is the narrative-oriented view of a repository.
type StoryComponents struct {
	Chapters     []ChapterSuggestion `json:"chapters"`
	Characters   []CodeCharacter     `json:"characters"`
	Themes       []string            `json:"themes"`
	NarrativeArc string              `json:"narrative_arc"`
}

// AnalysisArtifact is the output of the analysis stage.
type AnalysisArtifact struct {
	RepoReference       string          `json:"repo_reference"`
	PrimaryLanguage     string          `json:"primary_language,omitempty"`
	TotalFiles          int             `json:"total_files"`
	ArchitecturePattern string          `json:"architecture_pattern"`
	KeyComponents       []ComponentInfo `json:"key_components"`
	DirectoryStructure  map[string]int  `json:"directory_structure"`
	EntryPoints         []string        `json:"entry_points,omitempty"`
	StoryComponents     StoryComponents `json:"story_components"`
}

// ChapterScript is one chapter of the narrated script.
type ChapterScript struct {
	Number           int        `json:"chapter_number"`
	Title            string     `json:"title"`
	Script           string     `json:"script"`
	Markers          []Marker   `json:"markers,omitempty"`
	EstimatedSeconds int        `json:"estimated_seconds"`
	TransitionOut    Transition `json:"transition_out"`
}

// NarrativeArtifact is the output of the narrative stage.
type NarrativeArtifact struct {
	Title                      string          `json:"title"`
	Style                      NarrativeStyle  `json:"style"`
	Chapters                   []ChapterScript `json:"chapters"`
	EstimatedDurationSeconds   int             `json:"estimated_duration_seconds"`
	VoiceProfileRecommendation string          `json:"voice_profile_recommendation"`
}

// VoiceProfile captures the synthesis voice configuration used.
type VoiceProfile struct {
	ID              string  `json:"voice_id"`
	Name            string  `json:"voice_name"`
	Style           string  `json:"style"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ChapterAudio is the synthesized audio for one chapter.
type ChapterAudio struct {
	Number             int     `json:"chapter_number"`
	Title              string  `json:"title"`
	AudioURL           string  `json:"audio_url"`
	DurationSeconds    float64 `json:"duration_seconds"`
	StartOffsetSeconds float64 `json:"start_offset_seconds"`
}

// AudioArtifact is the terminal output of the synthesis stage.
//
// Error and PartialChapters are populated only when Success is false but some
// chapters did complete (quota exhaustion mid-run).
type AudioArtifact struct {
	Success              bool           `json:"success"`
	AudioURL             string         `json:"audio_url,omitempty"`
	Chapters             []ChapterAudio `json:"chapters"`
	TotalDurationSeconds float64        `json:"total_duration_seconds"`
	VoiceProfile         *VoiceProfile  `json:"voice_profile,omitempty"`
	Error                string         `json:"error,omitempty"`
	PartialChapters      []ChapterAudio `json:"partial_chapters,omitempty"`
}
