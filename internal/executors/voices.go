package executors

import "codestory/internal/story"

// voiceProfiles maps narrative styles to synthesis voices. Stability and
// similarity tune how faithfully the voice tracks its reference delivery:
// creative styles run looser, reference styles run tighter.
var voiceProfiles = map[story.NarrativeStyle]story.VoiceProfile{
	story.StyleFiction: {
		ID:              "pNInz6obpgDQGcFmaJgB",
		Name:            "Adam",
		Style:           string(story.StyleFiction),
		Stability:       0.5,
		SimilarityBoost: 0.8,
	},
	story.StyleDocumentary: {
		ID:              "VR6AewLTigWG4xSOukaG",
		Name:            "Arnold",
		Style:           string(story.StyleDocumentary),
		Stability:       0.7,
		SimilarityBoost: 0.7,
	},
	story.StyleTutorial: {
		ID:              "EXAVITQu4vr4xnSDxMaL",
		Name:            "Bella",
		Style:           string(story.StyleTutorial),
		Stability:       0.5,
		SimilarityBoost: 0.8,
	},
	story.StylePodcast: {
		ID:              "EXAVITQu4vr4xnSDxMaL",
		Name:            "Bella",
		Style:           string(story.StylePodcast),
		Stability:       0.5,
		SimilarityBoost: 0.8,
	},
	story.StyleTechnical: {
		ID:              "21m00Tcm4TlvDq8ikWAM",
		Name:            "Rachel",
		Style:           string(story.StyleTechnical),
		Stability:       0.75,
		SimilarityBoost: 0.75,
	},
}

// VoiceProfileFor returns the synthesis voice for a narrative style. Unknown
// styles fall back to the default style's voice.
func VoiceProfileFor(style story.NarrativeStyle) story.VoiceProfile {
	if profile, ok := voiceProfiles[style]; ok {
		return profile
	}
	return voiceProfiles[story.DefaultStyle]
}
