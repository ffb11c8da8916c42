package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	WorkspaceDir string `toml:"workspace_dir"`
	APIBind      string `toml:"api_bind"`
	APIToken     string `toml:"api_token"`
}

// LLM contains connection settings for the chat-completion provider used by
// the intent, analysis, and narrative executors.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains connection settings for the speech-synthesis provider used by
// the synthesis executor.
type TTS struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	ModelID         string `toml:"model_id"`
	OutputFormat    string `toml:"output_format"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MaxSegmentChars int    `toml:"max_segment_chars"`
}

// Analysis contains repository packaging limits applied before the analysis
// executor hands content to the model.
type Analysis struct {
	CloneDepth           int      `toml:"clone_depth"`
	MaxFiles             int      `toml:"max_files"`
	MaxFilesPerDirectory int      `toml:"max_files_per_directory"`
	IgnorePatterns       []string `toml:"ignore_patterns"`
	PackagedByteCeiling  int      `toml:"packaged_byte_ceiling"`
}

// Pipeline contains orchestration tuning: worker pool size, per-stage
// timeouts, progress buffering, and artifact size ceilings.
type Pipeline struct {
	Workers                 int `toml:"workers"`
	EventBufferSize         int `toml:"event_buffer_size"`
	IntentTimeoutSeconds    int `toml:"intent_timeout_seconds"`
	AnalysisTimeoutSeconds  int `toml:"analysis_timeout_seconds"`
	NarrativeTimeoutSeconds int `toml:"narrative_timeout_seconds"`
	SynthesisTimeoutSeconds int `toml:"synthesis_timeout_seconds"`
	SynthesisConcurrency    int `toml:"synthesis_concurrency"`
	AnalysisByteCeiling     int `toml:"analysis_byte_ceiling"`
	StoryByteCeiling        int `toml:"story_byte_ceiling"`
	SummaryByteCeiling      int `toml:"summary_byte_ceiling"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunStarted     bool   `toml:"run_started"`
	RunCompleted   bool   `toml:"run_completed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the codestory daemon and CLI.
//
// Configuration sections by subsystem:
//   - Paths: data/log/workspace directories and API bind address
//   - LLM: chat-completion provider for intent/analysis/narrative executors
//   - TTS: speech-synthesis provider for the synthesis executor
//   - Analysis: repository packaging limits
//   - Pipeline: worker pool, stage timeouts, artifact size ceilings
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	TTS           TTS           `toml:"tts"`
	Analysis      Analysis      `toml:"analysis"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/codestory/config.toml")
}

// ExpandPath resolves ~ prefixes and relative segments to an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return value
// is the resolved path, the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, and workspace directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.WorkspaceDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}
