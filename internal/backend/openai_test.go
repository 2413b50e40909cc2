package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/personabot/internal/presets"
	"github.com/edgard/personabot/internal/text"
)

func newFakeOpenAI(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestChatAdapter(t *testing.T) {
	t.Parallel()

	var got struct {
		Model       string  `json:"model"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "Paris[1]."}}},
		})
	})

	adapter := NewChatAdapter(NewOpenAIClient("key", srv.URL), text.StripCitations, discardLogger())
	assert.Equal(t, presets.CapabilityText, adapter.Capability())

	result := adapter.Invoke(context.Background(), Request{
		ModelKey:      "sonar",
		ProviderModel: "sonar",
		Params:        presets.GenerationParams{Temperature: 0.5},
		Messages:      []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "capital?"}},
	})

	require.True(t, result.OK(), result.Detail)
	assert.Equal(t, KindText, result.Kind)
	assert.Equal(t, "Paris.", result.Text)
	assert.Equal(t, "sonar", got.Model)
	assert.InDelta(t, 0.5, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestChatAdapterRateLimited(t *testing.T) {
	t.Parallel()

	srv := newFakeOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"},
		})
	})

	adapter := NewChatAdapter(NewOpenAIClient("key", srv.URL), nil, discardLogger())
	result := adapter.Invoke(context.Background(), Request{ProviderModel: "gpt-4o", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	assert.Equal(t, RateLimited, result.Outcome)
}

func TestChatAdapterEmptyChoices(t *testing.T) {
	t.Parallel()

	srv := newFakeOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"choices": []any{}})
	})

	adapter := NewChatAdapter(NewOpenAIClient("key", srv.URL), nil, discardLogger())
	result := adapter.Invoke(context.Background(), Request{ProviderModel: "gpt-4o", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	assert.Equal(t, ProviderError, result.Outcome)
}

func TestImageAdapter(t *testing.T) {
	t.Parallel()

	var prompt string
	srv := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		prompt, _ = body["prompt"].(string)
		writeJSON(w, http.StatusOK, map[string]any{"created": 1, "data": []map[string]any{{"url": "https://img.example/cat.png"}}})
	})

	adapter := NewImageAdapter(NewOpenAIClient("key", srv.URL), discardLogger())
	result := adapter.Invoke(context.Background(), Request{
		ModelKey: "dalle3",
		Messages: []Message{{Role: RoleSystem, Content: "ignored"}, {Role: RoleUser, Content: "a cat in a hat"}},
	})

	require.True(t, result.OK(), result.Detail)
	assert.Equal(t, KindImage, result.Kind)
	assert.Equal(t, "https://img.example/cat.png", result.ImageURL)
	assert.Equal(t, "a cat in a hat", prompt)
}

func TestImageAdapterContentPolicy(t *testing.T) {
	t.Parallel()

	srv := newFakeOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"code":    "content_policy_violation",
				"message": "Your request was rejected as a result of our safety system.",
				"type":    "invalid_request_error",
			},
		})
	})

	adapter := NewImageAdapter(NewOpenAIClient("key", srv.URL), discardLogger())
	result := adapter.Invoke(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "bad"}}})
	assert.Equal(t, ContentPolicy, result.Outcome)
}

func TestTranscriberAdapter(t *testing.T) {
	t.Parallel()

	srv := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		writeJSON(w, http.StatusOK, map[string]any{"text": " привет "})
	})

	adapter := NewTranscriberAdapter(NewOpenAIClient("key", srv.URL), discardLogger())
	result := adapter.Invoke(context.Background(), Request{Audio: []byte("OggS"), AudioName: "voice.ogg"})

	require.True(t, result.OK(), result.Detail)
	assert.Equal(t, KindTranscript, result.Kind)
	assert.Equal(t, "привет", result.Text)

	empty := adapter.Invoke(context.Background(), Request{})
	assert.Equal(t, ProviderError, empty.Outcome)
}

func TestSynthesizerAdapter(t *testing.T) {
	t.Parallel()

	srv := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"response_format":"opus"`)
		w.Header().Set("Content-Type", "audio/ogg")
		_, _ = w.Write([]byte("opus-bytes"))
	})

	adapter := NewSynthesizerAdapter(NewOpenAIClient("key", srv.URL), "nova", discardLogger())
	result := adapter.Invoke(context.Background(), Request{ProviderModel: "tts-1", Messages: []Message{{Role: RoleUser, Content: "hello"}}})

	require.True(t, result.OK(), result.Detail)
	assert.Equal(t, KindAudio, result.Kind)
	assert.Equal(t, []byte("opus-bytes"), result.Audio)
}
