package backend

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/edgard/personabot/internal/presets"
)

// NewOpenAIClient creates a go-openai client for any OpenAI-compatible endpoint.
func NewOpenAIClient(apiKey, baseURL string) *gopenai.Client {
	cfg := gopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return gopenai.NewClientWithConfig(cfg)
}

// ChatAdapter calls an OpenAI-compatible chat completions endpoint.
type ChatAdapter struct {
	client *gopenai.Client
	filter func(string) string
	log    *slog.Logger
}

// NewChatAdapter creates a chat adapter. filter, if non-nil, post-processes the reply.
func NewChatAdapter(client *gopenai.Client, filter func(string) string, logger *slog.Logger) *ChatAdapter {
	return &ChatAdapter{client: client, filter: filter, log: logger.With("component", "chat_adapter")}
}

func (a *ChatAdapter) Capability() presets.Capability { return presets.CapabilityText }

func (a *ChatAdapter) Invoke(ctx context.Context, req Request) Result {
	messages := make([]gopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, gopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	apiStart := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model:            req.ProviderModel,
		Messages:         messages,
		Temperature:      req.Params.Temperature,
		MaxTokens:        req.Params.MaxTokens,
		TopP:             req.Params.TopP,
		FrequencyPenalty: req.Params.FrequencyPenalty,
		PresencePenalty:  req.Params.PresencePenalty,
	})
	if err != nil {
		result := classifyOpenAIError(err)
		a.log.WarnContext(ctx, "Chat completion failed", "model", req.ModelKey, "outcome", result.Outcome, "error", err)
		return result
	}

	if len(resp.Choices) == 0 {
		return failure(ProviderError, "no response choices returned")
	}

	content := resp.Choices[0].Message.Content
	if a.filter != nil {
		content = a.filter(content)
	}
	if strings.TrimSpace(content) == "" {
		return failure(ProviderError, "empty completion")
	}

	a.log.DebugContext(ctx, "Chat completion received",
		"model", req.ModelKey,
		"api_ms", time.Since(apiStart).Milliseconds(),
		"tokens", resp.Usage.TotalTokens)

	return Result{Outcome: Success, Kind: KindText, Text: content}
}

// ImageAdapter generates a single image with DALL·E. Only the last user turn is used as the prompt.
type ImageAdapter struct {
	client *gopenai.Client
	log    *slog.Logger
}

// NewImageAdapter creates an image adapter generating one 1024x1024 image per request.
func NewImageAdapter(client *gopenai.Client, logger *slog.Logger) *ImageAdapter {
	return &ImageAdapter{client: client, log: logger.With("component", "image_adapter")}
}

func (a *ImageAdapter) Capability() presets.Capability { return presets.CapabilityImage }

func (a *ImageAdapter) Invoke(ctx context.Context, req Request) Result {
	prompt := req.LastUserText()
	if strings.TrimSpace(prompt) == "" {
		return failure(ProviderError, "empty image prompt")
	}

	model := req.ProviderModel
	if model == "" {
		model = gopenai.CreateImageModelDallE3
	}

	resp, err := a.client.CreateImage(ctx, gopenai.ImageRequest{
		Prompt:         prompt,
		Model:          model,
		N:              1,
		Size:           gopenai.CreateImageSize1024x1024,
		ResponseFormat: gopenai.CreateImageResponseFormatURL,
	})
	if err != nil {
		result := classifyOpenAIError(err)
		a.log.WarnContext(ctx, "Image generation failed", "model", req.ModelKey, "outcome", result.Outcome, "error", err)
		return result
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return failure(ProviderError, "no image returned")
	}

	return Result{Outcome: Success, Kind: KindImage, ImageURL: resp.Data[0].URL}
}

// TranscriberAdapter turns voice audio into text with Whisper.
type TranscriberAdapter struct {
	client *gopenai.Client
	log    *slog.Logger
}

// NewTranscriberAdapter creates a speech-to-text adapter backed by Whisper.
func NewTranscriberAdapter(client *gopenai.Client, logger *slog.Logger) *TranscriberAdapter {
	return &TranscriberAdapter{client: client, log: logger.With("component", "transcriber_adapter")}
}

func (a *TranscriberAdapter) Capability() presets.Capability { return presets.CapabilitySpeechToText }

func (a *TranscriberAdapter) Invoke(ctx context.Context, req Request) Result {
	if len(req.Audio) == 0 {
		return failure(ProviderError, "empty audio")
	}

	name := req.AudioName
	if name == "" {
		name = "voice.ogg"
	}
	model := req.ProviderModel
	if model == "" {
		model = gopenai.Whisper1
	}

	resp, err := a.client.CreateTranscription(ctx, gopenai.AudioRequest{
		Model:    model,
		FilePath: name,
		Reader:   bytes.NewReader(req.Audio),
	})
	if err != nil {
		result := classifyOpenAIError(err)
		a.log.WarnContext(ctx, "Transcription failed", "outcome", result.Outcome, "error", err)
		return result
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return failure(ProviderError, "empty transcript")
	}
	return Result{Outcome: Success, Kind: KindTranscript, Text: text}
}

// SynthesizerAdapter speaks the last user turn with OpenAI TTS and returns opus audio.
type SynthesizerAdapter struct {
	client *gopenai.Client
	voice  gopenai.SpeechVoice
	log    *slog.Logger
}

// NewSynthesizerAdapter creates a text-to-speech adapter producing opus audio in the given voice.
func NewSynthesizerAdapter(client *gopenai.Client, voice string, logger *slog.Logger) *SynthesizerAdapter {
	if voice == "" {
		voice = string(gopenai.VoiceAlloy)
	}
	return &SynthesizerAdapter{
		client: client,
		voice:  gopenai.SpeechVoice(voice),
		log:    logger.With("component", "synthesizer_adapter"),
	}
}

func (a *SynthesizerAdapter) Capability() presets.Capability { return presets.CapabilityTextToSpeech }

func (a *SynthesizerAdapter) Invoke(ctx context.Context, req Request) Result {
	input := req.LastUserText()
	if strings.TrimSpace(input) == "" {
		return failure(ProviderError, "empty speech input")
	}

	model := gopenai.SpeechModel(req.ProviderModel)
	if model == "" {
		model = gopenai.TTSModel1
	}

	resp, err := a.client.CreateSpeech(ctx, gopenai.CreateSpeechRequest{
		Model:          model,
		Input:          input,
		Voice:          a.voice,
		ResponseFormat: gopenai.SpeechResponseFormatOpus,
	})
	if err != nil {
		result := classifyOpenAIError(err)
		a.log.WarnContext(ctx, "Speech synthesis failed", "outcome", result.Outcome, "error", err)
		return result
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return classifyOpenAIError(err)
	}
	if len(audio) == 0 {
		return failure(ProviderError, "empty audio")
	}
	return Result{Outcome: Success, Kind: KindAudio, Audio: audio}
}
