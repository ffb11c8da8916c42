package story

import (
	"regexp"
	"strings"
)

// MarkerKind identifies a voice-direction marker embedded in a script.
type MarkerKind string

const (
	MarkerPause          MarkerKind = "PAUSE"
	MarkerEmphasis       MarkerKind = "EMPHASIS"
	MarkerSlow           MarkerKind = "SLOW"
	MarkerCode           MarkerKind = "CODE"
	MarkerConversational MarkerKind = "CONVERSATIONAL"
)

// Marker is a voice-direction cue parsed from a chapter script. Text is set
// only for CODE markers, carrying the snippet to be read with technical
// pronunciation.
type Marker struct {
	Kind MarkerKind `json:"kind"`
	Text string     `json:"text,omitempty"`
}

var markerPattern = regexp.MustCompile(`\[(PAUSE|EMPHASIS|SLOW|CONVERSATIONAL)\]|\[CODE:\s*([^\]]*)\]`)

// ParseMarkers extracts voice-direction markers from a script in order of
// appearance.
func ParseMarkers(script string) []Marker {
	matches := markerPattern.FindAllStringSubmatch(script, -1)
	if len(matches) == 0 {
		return nil
	}
	markers := make([]Marker, 0, len(matches))
	for _, match := range matches {
		if match[1] != "" {
			markers = append(markers, Marker{Kind: MarkerKind(match[1])})
			continue
		}
		markers = append(markers, Marker{Kind: MarkerCode, Text: strings.TrimSpace(match[2])})
	}
	return markers
}

// StripMarkers removes voice-direction markers from a script, keeping the
// snippet text of CODE markers so the spoken narration stays intact.
func StripMarkers(script string) string {
	cleaned := markerPattern.ReplaceAllStringFunc(script, func(match string) string {
		sub := markerPattern.FindStringSubmatch(match)
		if sub[1] != "" {
			return ""
		}
		return strings.TrimSpace(sub[2])
	})
	cleaned = strings.ReplaceAll(cleaned, "  ", " ")
	return strings.TrimSpace(cleaned)
}
