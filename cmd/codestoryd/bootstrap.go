package main

import (
	"log/slog"

	"codestory/internal/config"
	"codestory/internal/executors"
	"codestory/internal/services/elevenlabs"
	"codestory/internal/services/llm"
	"codestory/internal/stage"
)

// buildExecutors wires the LLM and TTS clients into the four stage executors.
func buildExecutors(cfg *config.Config, logger *slog.Logger) []stage.Executor {
	completer := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	tts := elevenlabs.NewClient(elevenlabs.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		ModelID:        cfg.TTS.ModelID,
		OutputFormat:   cfg.TTS.OutputFormat,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})

	return []stage.Executor{
		executors.NewIntent(cfg, completer, logger),
		executors.NewAnalysis(cfg, completer, logger),
		executors.NewNarrative(cfg, completer, logger),
		executors.NewSynthesis(cfg, tts, logger),
	}
}
