package executors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"codestory/internal/config"
	"codestory/internal/logging"
	"codestory/internal/runs"
	"codestory/internal/services"
	"codestory/internal/services/elevenlabs"
	"codestory/internal/stage"
	"codestory/internal/story"
)

// Synthesis renders the narration script to audio.
type Synthesis struct {
	cfg    *config.Config
	tts    Synthesizer
	logger *slog.Logger
}

// NewSynthesis constructs the synthesis stage executor.
func NewSynthesis(cfg *config.Config, tts Synthesizer, logger *slog.Logger) *Synthesis {
	return &Synthesis{
		cfg:    cfg,
		tts:    tts,
		logger: logging.NewComponentLogger(logger, "synthesis"),
	}
}

func (e *Synthesis) Stage() runs.Stage {
	return runs.StageSynthesis
}

// Execute synthesizes every chapter concurrently. Quota exhaustion mid-run
// does not fail the stage: whatever chapters completed are returned in a
// degraded artifact and the pipeline still finishes.
func (e *Synthesis) Execute(ctx context.Context, req *stage.Request) (*stage.Result, error) {
	logger := logging.WithContext(ctx, e.logger)
	if req.Narrative == nil || len(req.Narrative.Chapters) == 0 {
		return nil, services.Wrap(services.ErrValidation, "synthesis", "validate inputs",
			"narrative artifact with chapters is required before synthesis", nil)
	}

	profile := VoiceProfileFor(req.Narrative.Style)
	outDir := filepath.Join(e.cfg.Paths.WorkspaceDir, "runs", req.RunID, "audio")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, "synthesis", "prepare output", "cannot create audio directory", err)
	}
	logger.Info("synthesizing audio",
		logging.String("voice", profile.Name),
		logging.Int("chapters", len(req.Narrative.Chapters)),
	)

	concurrency := e.cfg.Pipeline.SynthesisConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu        sync.Mutex
		completed []story.ChapterAudio
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for _, chapter := range req.Narrative.Chapters {
		group.Go(func() error {
			audio, err := e.renderChapter(groupCtx, outDir, profile, chapter)
			if err != nil {
				return err
			}
			mu.Lock()
			completed = append(completed, *audio)
			mu.Unlock()
			return nil
		})
	}
	err := group.Wait()

	sort.Slice(completed, func(i, j int) bool { return completed[i].Number < completed[j].Number })
	offset := 0.0
	for i := range completed {
		completed[i].StartOffsetSeconds = offset
		offset += completed[i].DurationSeconds
	}

	if err != nil {
		if elevenlabs.IsQuota(err) || errors.Is(err, services.ErrQuota) {
			logger.Warn("voice quota exhausted, keeping completed chapters",
				logging.Int("completed", len(completed)),
				logging.Int("requested", len(req.Narrative.Chapters)),
			)
			return &stage.Result{Audio: &story.AudioArtifact{
				Success:              false,
				Error:                "voice synthesis quota exceeded",
				PartialChapters:      completed,
				TotalDurationSeconds: offset,
				VoiceProfile:         &profile,
			}}, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, services.Wrap(services.ErrCancelled, "synthesis", "render chapters", "synthesis cancelled", err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "synthesis", "render chapters", "synthesis timed out", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "synthesis", "render chapters", "voice synthesis failed", err)
	}

	storyPath, err := e.assembleStory(outDir, completed)
	if err != nil {
		return nil, err
	}
	logger.Info("audio synthesized",
		logging.String("story_file", storyPath),
		logging.Float64("total_seconds", offset),
	)
	return &stage.Result{Audio: &story.AudioArtifact{
		Success:              true,
		AudioURL:             storyPath,
		Chapters:             completed,
		TotalDurationSeconds: offset,
		VoiceProfile:         &profile,
	}}, nil
}

func (e *Synthesis) renderChapter(ctx context.Context, outDir string, profile story.VoiceProfile, chapter story.ChapterScript) (*story.ChapterAudio, error) {
	text := story.StripMarkers(chapter.Script)
	segments := splitSegments(text, e.maxSegmentChars())

	var audio []byte
	duration := 0.0
	for _, segment := range segments {
		rendered, err := e.tts.SynthesizeSegment(ctx, elevenlabs.SegmentRequest{
			VoiceID: profile.ID,
			Text:    segment,
			Settings: elevenlabs.VoiceSettings{
				Stability:       profile.Stability,
				SimilarityBoost: profile.SimilarityBoost,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("chapter %d: %w", chapter.Number, err)
		}
		audio = append(audio, rendered.Audio...)
		duration += rendered.DurationSeconds
	}

	path := filepath.Join(outDir, fmt.Sprintf("chapter_%02d.mp3", chapter.Number))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return nil, services.Wrap(services.ErrStorage, "synthesis", "write chapter",
			fmt.Sprintf("cannot write chapter %d audio", chapter.Number), err)
	}
	return &story.ChapterAudio{
		Number:          chapter.Number,
		Title:           chapter.Title,
		AudioURL:        path,
		DurationSeconds: duration,
	}, nil
}

// assembleStory concatenates the chapter files into one story file. The
// output format is constant-bitrate MP3, so frame-level concatenation is a
// valid join.
func (e *Synthesis) assembleStory(outDir string, chapters []story.ChapterAudio) (string, error) {
	storyPath := filepath.Join(outDir, "story.mp3")
	out, err := os.Create(storyPath)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "synthesis", "assemble story", "cannot create story file", err)
	}
	defer out.Close()

	for _, chapter := range chapters {
		body, readErr := os.ReadFile(chapter.AudioURL)
		if readErr != nil {
			return "", services.Wrap(services.ErrStorage, "synthesis", "assemble story",
				fmt.Sprintf("cannot read chapter %d audio", chapter.Number), readErr)
		}
		if _, writeErr := out.Write(body); writeErr != nil {
			return "", services.Wrap(services.ErrStorage, "synthesis", "assemble story", "cannot append chapter audio", writeErr)
		}
	}
	return storyPath, nil
}

func (e *Synthesis) maxSegmentChars() int {
	if e.cfg.TTS.MaxSegmentChars > 0 {
		return e.cfg.TTS.MaxSegmentChars
	}
	return 5000
}

// splitSegments breaks script text into synthesis-sized segments, preferring
// paragraph boundaries and falling back to sentence and then hard splits.
func splitSegments(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	var segments []string
	current := ""
	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if len(paragraph) > maxChars {
			if current != "" {
				segments = append(segments, current)
				current = ""
			}
			segments = append(segments, splitLongParagraph(paragraph, maxChars)...)
			continue
		}
		if current == "" {
			current = paragraph
		} else if len(current)+2+len(paragraph) <= maxChars {
			current += "\n\n" + paragraph
		} else {
			segments = append(segments, current)
			current = paragraph
		}
	}
	if current != "" {
		segments = append(segments, current)
	}
	return segments
}

func splitLongParagraph(paragraph string, maxChars int) []string {
	var segments []string
	current := ""
	for _, sentence := range splitSentences(paragraph) {
		if len(sentence) > maxChars {
			if current != "" {
				segments = append(segments, current)
				current = ""
			}
			for len(sentence) > maxChars {
				segments = append(segments, sentence[:maxChars])
				sentence = sentence[maxChars:]
			}
			if sentence != "" {
				current = sentence
			}
			continue
		}
		if current == "" {
			current = sentence
		} else if len(current)+1+len(sentence) <= maxChars {
			current += " " + sentence
		} else {
			segments = append(segments, current)
			current = sentence
		}
	}
	if current != "" {
		segments = append(segments, current)
	}
	return segments
}

func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' {
				sentence := strings.TrimSpace(text[start : i+1])
				if sentence != "" {
					sentences = append(sentences, sentence)
				}
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
