package testsupport

import (
	"path/filepath"
	"testing"

	"codestory/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test-llm-key"
	cfgVal.TTS.APIKey = "test-tts-key"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.WorkspaceDir = filepath.Join(base, "workspace")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStageTimeouts overrides all four stage timeouts at once.
func WithStageTimeouts(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.IntentTimeoutSeconds = seconds
		b.cfg.Pipeline.AnalysisTimeoutSeconds = seconds
		b.cfg.Pipeline.NarrativeTimeoutSeconds = seconds
		b.cfg.Pipeline.SynthesisTimeoutSeconds = seconds
	}
}

// WithArtifactCeilings overrides the analysis and summary byte ceilings.
func WithArtifactCeilings(analysisBytes, summaryBytes int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.AnalysisByteCeiling = analysisBytes
		b.cfg.Pipeline.SummaryByteCeiling = summaryBytes
	}
}

// WithStoryCeiling overrides the story-components byte ceiling.
func WithStoryCeiling(storyBytes int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.StoryByteCeiling = storyBytes
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
