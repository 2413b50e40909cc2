package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/personabot/internal/presets"
)

// GeminiAdapter calls Google Gemini through the genai SDK. System turns become
// the system instruction and assistant turns are sent with the model role.
type GeminiAdapter struct {
	client     *genai.Client
	model      string
	maxRetries int
	retryDelay time.Duration
	log        *slog.Logger
}

// NewGeminiClient creates a genai client for the Gemini API. baseURL is optional.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

// NewGeminiAdapter creates an adapter. model overrides the preset's provider model when set.
func NewGeminiAdapter(client *genai.Client, model string, logger *slog.Logger) *GeminiAdapter {
	return &GeminiAdapter{
		client:     client,
		model:      model,
		maxRetries: 2,
		retryDelay: time.Second,
		log:        logger.With("component", "gemini_adapter"),
	}
}

func (a *GeminiAdapter) Capability() presets.Capability { return presets.CapabilityText }

func (a *GeminiAdapter) Invoke(ctx context.Context, req Request) Result {
	model := a.model
	if model == "" {
		model = req.ProviderModel
	}

	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n")}}}
	}
	if p := req.Params; p.Temperature != 0 {
		cfg.Temperature = genai.Ptr(p.Temperature)
	}
	if p := req.Params; p.TopP != 0 {
		cfg.TopP = genai.Ptr(p.TopP)
	}
	if p := req.Params; p.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.MaxTokens)
	}

	resp, err := a.generateWithRetries(ctx, model, contents, cfg)
	if err != nil {
		result := classifyGeminiError(err)
		a.log.WarnContext(ctx, "Gemini call failed", "model", model, "outcome", result.Outcome, "error", err)
		return result
	}

	return a.extract(ctx, resp)
}

func (a *GeminiAdapter) generateWithRetries(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var err error
	for i := 0; i <= a.maxRetries; i++ {
		var resp *genai.GenerateContentResponse
		resp, err = a.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			return resp, nil
		}

		var apiErr *genai.APIError
		if !errors.As(err, &apiErr) || (apiErr.Code != 500 && apiErr.Code != 503) || i == a.maxRetries {
			return nil, err
		}

		a.log.InfoContext(ctx, "Retrying Gemini call after retriable APIError", "attempt", i+1, "code", apiErr.Code, "delay", a.retryDelay)
		timer := time.NewTimer(a.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, err
}

func (a *GeminiAdapter) extract(ctx context.Context, resp *genai.GenerateContentResponse) Result {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		a.log.WarnContext(ctx, "Gemini request blocked", "reason", reason)
		return failure(ContentPolicy, reason)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return failure(ContentPolicy, "response blocked by safety filter")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return failure(ProviderError, "empty Gemini response")
	}
	return Result{Outcome: Success, Kind: KindText, Text: text}
}
