package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/codestory/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY env var or edit %s (create with 'codestory config init')", defaultPath)
	}
	if c.LLM.BaseURL == "" {
		return errors.New("llm.base_url must be set")
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.TTS.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/codestory/config.toml"
		}
		return fmt.Errorf("tts.api_key is required. Set ELEVENLABS_API_KEY env var or edit %s (create with 'codestory config init')", defaultPath)
	}
	if c.TTS.MaxSegmentChars > 10000 {
		return errors.New("tts.max_segment_chars must not exceed 10000")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	return ensurePositiveMap(map[string]int{
		"pipeline.workers":                   c.Pipeline.Workers,
		"pipeline.event_buffer_size":         c.Pipeline.EventBufferSize,
		"pipeline.intent_timeout_seconds":    c.Pipeline.IntentTimeoutSeconds,
		"pipeline.analysis_timeout_seconds":  c.Pipeline.AnalysisTimeoutSeconds,
		"pipeline.narrative_timeout_seconds": c.Pipeline.NarrativeTimeoutSeconds,
		"pipeline.synthesis_timeout_seconds": c.Pipeline.SynthesisTimeoutSeconds,
		"pipeline.synthesis_concurrency":     c.Pipeline.SynthesisConcurrency,
		"pipeline.analysis_byte_ceiling":     c.Pipeline.AnalysisByteCeiling,
		"pipeline.story_byte_ceiling":        c.Pipeline.StoryByteCeiling,
		"pipeline.summary_byte_ceiling":      c.Pipeline.SummaryByteCeiling,
		"analysis.max_files":                 c.Analysis.MaxFiles,
		"analysis.max_files_per_directory":   c.Analysis.MaxFilesPerDirectory,
		"analysis.packaged_byte_ceiling":     c.Analysis.PackagedByteCeiling,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
