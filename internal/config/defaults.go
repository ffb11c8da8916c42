package config

const (
	defaultDataDir      = "~/.local/share/codestory/data"
	defaultLogDir       = "~/.local/share/codestory/logs"
	defaultWorkspaceDir = "~/.local/share/codestory/workspace"
	defaultAPIBind      = "127.0.0.1:7509"

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMReferer        = "https://github.com/codestory/codestory"
	defaultLLMTitle          = "Code Story"
	defaultLLMTimeoutSeconds = 60

	defaultTTSBaseURL         = "https://api.elevenlabs.io"
	defaultTTSModelID         = "eleven_turbo_v2"
	defaultTTSOutputFormat    = "mp3_44100_128"
	defaultTTSTimeoutSeconds  = 120
	defaultTTSMaxSegmentChars = 5000

	defaultCloneDepth           = 1
	defaultMaxFiles             = 2000
	defaultMaxFilesPerDirectory = 50
	defaultPackagedByteCeiling  = 2 * 1024 * 1024

	defaultPipelineWorkers         = 4
	defaultEventBufferSize         = 256
	defaultIntentTimeoutSeconds    = 120
	defaultAnalysisTimeoutSeconds  = 300
	defaultNarrativeTimeoutSeconds = 300
	defaultSynthesisTimeoutSeconds = 900
	defaultSynthesisConcurrency    = 3
	defaultAnalysisByteCeiling     = 50 * 1024
	defaultStoryByteCeiling        = 20 * 1024
	defaultSummaryByteCeiling      = 10 * 1024

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

func defaultIgnorePatterns() []string {
	return []string{
		".git/",
		"node_modules/",
		"vendor/",
		"dist/",
		"build/",
		"target/",
		"*.min.js",
		"*.lock",
		"*.sum",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			LogDir:       defaultLogDir,
			WorkspaceDir: defaultWorkspaceDir,
			APIBind:      defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS: TTS{
			BaseURL:         defaultTTSBaseURL,
			ModelID:         defaultTTSModelID,
			OutputFormat:    defaultTTSOutputFormat,
			TimeoutSeconds:  defaultTTSTimeoutSeconds,
			MaxSegmentChars: defaultTTSMaxSegmentChars,
		},
		Analysis: Analysis{
			CloneDepth:           defaultCloneDepth,
			MaxFiles:             defaultMaxFiles,
			MaxFilesPerDirectory: defaultMaxFilesPerDirectory,
			IgnorePatterns:       defaultIgnorePatterns(),
			PackagedByteCeiling:  defaultPackagedByteCeiling,
		},
		Pipeline: Pipeline{
			Workers:                 defaultPipelineWorkers,
			EventBufferSize:         defaultEventBufferSize,
			IntentTimeoutSeconds:    defaultIntentTimeoutSeconds,
			AnalysisTimeoutSeconds:  defaultAnalysisTimeoutSeconds,
			NarrativeTimeoutSeconds: defaultNarrativeTimeoutSeconds,
			SynthesisTimeoutSeconds: defaultSynthesisTimeoutSeconds,
			SynthesisConcurrency:    defaultSynthesisConcurrency,
			AnalysisByteCeiling:     defaultAnalysisByteCeiling,
			StoryByteCeiling:        defaultStoryByteCeiling,
			SummaryByteCeiling:      defaultSummaryByteCeiling,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunStarted:     false,
			RunCompleted:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
