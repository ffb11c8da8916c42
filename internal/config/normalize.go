package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeTTS()
	c.normalizeAnalysis()
	c.normalizePipeline()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeTTS() {
	if c.TTS.APIKey == "" {
		if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok {
			c.TTS.APIKey = value
		}
	}
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	if strings.TrimSpace(c.TTS.ModelID) == "" {
		c.TTS.ModelID = defaultTTSModelID
	}
	if strings.TrimSpace(c.TTS.OutputFormat) == "" {
		c.TTS.OutputFormat = defaultTTSOutputFormat
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
	if c.TTS.MaxSegmentChars <= 0 {
		c.TTS.MaxSegmentChars = defaultTTSMaxSegmentChars
	}
}

func (c *Config) normalizeAnalysis() {
	if c.Analysis.CloneDepth < 0 {
		c.Analysis.CloneDepth = defaultCloneDepth
	}
	if c.Analysis.MaxFiles <= 0 {
		c.Analysis.MaxFiles = defaultMaxFiles
	}
	if c.Analysis.MaxFilesPerDirectory <= 0 {
		c.Analysis.MaxFilesPerDirectory = defaultMaxFilesPerDirectory
	}
	if len(c.Analysis.IgnorePatterns) == 0 {
		c.Analysis.IgnorePatterns = defaultIgnorePatterns()
	}
	if c.Analysis.PackagedByteCeiling <= 0 {
		c.Analysis.PackagedByteCeiling = defaultPackagedByteCeiling
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = defaultPipelineWorkers
	}
	if c.Pipeline.EventBufferSize <= 0 {
		c.Pipeline.EventBufferSize = defaultEventBufferSize
	}
	if c.Pipeline.IntentTimeoutSeconds <= 0 {
		c.Pipeline.IntentTimeoutSeconds = defaultIntentTimeoutSeconds
	}
	if c.Pipeline.AnalysisTimeoutSeconds <= 0 {
		c.Pipeline.AnalysisTimeoutSeconds = defaultAnalysisTimeoutSeconds
	}
	if c.Pipeline.NarrativeTimeoutSeconds <= 0 {
		c.Pipeline.NarrativeTimeoutSeconds = defaultNarrativeTimeoutSeconds
	}
	if c.Pipeline.SynthesisTimeoutSeconds <= 0 {
		c.Pipeline.SynthesisTimeoutSeconds = defaultSynthesisTimeoutSeconds
	}
	if c.Pipeline.SynthesisConcurrency <= 0 {
		c.Pipeline.SynthesisConcurrency = defaultSynthesisConcurrency
	}
	if c.Pipeline.AnalysisByteCeiling <= 0 {
		c.Pipeline.AnalysisByteCeiling = defaultAnalysisByteCeiling
	}
	if c.Pipeline.StoryByteCeiling <= 0 {
		c.Pipeline.StoryByteCeiling = defaultStoryByteCeiling
	}
	if c.Pipeline.SummaryByteCeiling <= 0 {
		c.Pipeline.SummaryByteCeiling = defaultSummaryByteCeiling
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
