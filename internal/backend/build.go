package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edgard/personabot/internal/config"
	"github.com/edgard/personabot/internal/presets"
	"github.com/edgard/personabot/internal/text"
)

// Model keys bound to concrete providers.
const (
	modelGPT4o    = "gpt-4o"
	modelSonar    = "sonar"
	modelDeepSeek = "deepseek"
	modelGemini   = "gemini"
	modelDalle3   = "dalle3"
)

// Build wires a Table from configured providers. Providers without an API key
// are skipped, so their models resolve as unavailable.
func Build(ctx context.Context, cfg *config.Config, registry *presets.Registry, logger *slog.Logger) (*Table, error) {
	log := logger.With("component", "backend")
	table := NewTable()
	providers := cfg.Providers

	guard := func(key string, adapter Adapter) {
		if _, ok := registry.Model(key); !ok {
			log.Warn("Skipping backend for unknown model", "model", key)
			return
		}
		table.Register(key, NewGuard(adapter, GuardConfig{
			Name:        key,
			Timeout:     providers.Timeout,
			MaxFailures: providers.BreakerFailures,
			Cooldown:    providers.BreakerCooldown,
		}, logger))
	}

	if providers.OpenAI.APIKey != "" {
		client := NewOpenAIClient(providers.OpenAI.APIKey, providers.OpenAI.BaseURL)
		guard(modelGPT4o, NewChatAdapter(client, nil, logger))
		guard(modelDalle3, NewImageAdapter(client, logger))
		if cfg.Speech.Transcriber != "" {
			guard(cfg.Speech.Transcriber, NewTranscriberAdapter(client, logger))
		}
		if cfg.Speech.Synthesizer != "" {
			guard(cfg.Speech.Synthesizer, NewSynthesizerAdapter(client, cfg.Speech.Voice, logger))
		}
	} else {
		log.Warn("OpenAI API key not set, OpenAI models disabled")
	}

	if providers.Perplexity.APIKey != "" {
		client := NewOpenAIClient(providers.Perplexity.APIKey, providers.Perplexity.BaseURL)
		guard(modelSonar, NewChatAdapter(client, text.StripCitations, logger))
	}

	if providers.DeepSeek.APIKey != "" {
		client := NewOpenAIClient(providers.DeepSeek.APIKey, providers.DeepSeek.BaseURL)
		guard(modelDeepSeek, NewChatAdapter(client, nil, logger))
	}

	if providers.Gemini.APIKey != "" {
		client, err := NewGeminiClient(ctx, providers.Gemini.APIKey, "")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini backend: %w", err)
		}
		guard(modelGemini, NewGeminiAdapter(client, providers.Gemini.Model, logger))
	}

	log.Info("Backends registered", "models", table.Keys())
	return table, nil
}
