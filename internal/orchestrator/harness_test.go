package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/edgard/personabot/internal/backend"
	"github.com/edgard/personabot/internal/chat"
	"github.com/edgard/personabot/internal/config"
	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/dialog"
	"github.com/edgard/personabot/internal/entitlement"
	"github.com/edgard/personabot/internal/metrics"
	"github.com/edgard/personabot/internal/presets"
	"github.com/edgard/personabot/internal/profile"
	"github.com/edgard/personabot/internal/session"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Quota: config.QuotaConfig{
			FreeLimit:      2,
			MaxHistory:     10,
			DefaultModel:   "gpt-4o",
			DefaultPersona: "tarot_reader",
		},
		Speech:  config.SpeechConfig{Transcriber: "whisper", Synthesizer: "tts"},
		Notices: config.NoticesConfig{TransientTTL: time.Second},
		Messages: config.MessagesConfig{
			UnknownCommand:      "unknown command",
			Busy:                "busy",
			ModelUnavailable:    "model unavailable",
			LimitExhausted:      "limit for %s",
			UsageDenied:         "denied",
			Upsell:              " +upsell",
			GeneratingImage:     "%s is drawing",
			Thinking:            "%s answers as %s",
			RateLimited:         "rate limited",
			ProviderError:       "provider error",
			ProviderUnavailable: "provider unavailable",
			ContentPolicy:       "content policy",
			GeneralError:        "general error",
			SubscribeToUnlock:   "subscribe to unlock",
			VoiceTranscript:     "transcript: %s",
			VoiceFailed:         "voice failed",
			CustomPromptEmpty:   "empty prompt",
			CustomPromptTooLong: "prompt longer than %d",
			CustomPromptSaved:   "prompt saved",
		},
	}
}

type sent struct {
	Kind    string
	ChatID  int64
	Text    string
	Opts    chat.SendOptions
	Payload []byte
	Ref     chat.MessageRef
}

type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []sent
	deleted []chat.MessageRef
	failAll bool
}

func (m *fakeMessenger) record(kind string, chatID int64, text string, opts chat.SendOptions, payload []byte) (chat.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return chat.MessageRef{}, errors.New("Forbidden: bot was blocked by the user")
	}
	m.nextID++
	ref := chat.MessageRef{ChatID: chatID, MessageID: m.nextID}
	m.sent = append(m.sent, sent{Kind: kind, ChatID: chatID, Text: text, Opts: opts, Payload: payload, Ref: ref})
	return ref, nil
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string, opts chat.SendOptions) (chat.MessageRef, error) {
	return m.record("text", chatID, text, opts, nil)
}

func (m *fakeMessenger) SendImage(_ context.Context, chatID int64, image []byte, caption string) (chat.MessageRef, error) {
	return m.record("image", chatID, caption, chat.SendOptions{}, image)
}

func (m *fakeMessenger) SendAudio(_ context.Context, chatID int64, audio []byte) (chat.MessageRef, error) {
	return m.record("audio", chatID, "", chat.SendOptions{}, audio)
}

func (m *fakeMessenger) EditText(context.Context, chat.MessageRef, string, chat.SendOptions) error {
	return nil
}

func (m *fakeMessenger) DeleteMessage(_ context.Context, ref chat.MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *fakeMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.Kind == "text" {
			out = append(out, s.Text)
		}
	}
	return out
}

func (m *fakeMessenger) ofKind(kind string) []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sent
	for _, s := range m.sent {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func (m *fakeMessenger) deletedRefs() []chat.MessageRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]chat.MessageRef(nil), m.deleted...)
}

type fakeFiles struct {
	data []byte
	err  error
}

func (f fakeFiles) FetchInboundFile(context.Context, string) ([]byte, error) {
	return f.data, f.err
}

type stubAdapter struct {
	capability presets.Capability
	result     backend.Result
	panicWith  any

	mu    sync.Mutex
	calls []backend.Request
}

func (s *stubAdapter) Capability() presets.Capability { return s.capability }

func (s *stubAdapter) Invoke(_ context.Context, req backend.Request) backend.Result {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.result
}

func (s *stubAdapter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func textAdapter(answer string) *stubAdapter {
	return &stubAdapter{
		capability: presets.CapabilityText,
		result:     backend.Result{Outcome: backend.Success, Kind: backend.KindText, Text: answer},
	}
}

type recordingRenewals struct {
	mu    sync.Mutex
	users []int64
}

func (r *recordingRenewals) CheckUser(_ context.Context, userID int64, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
	return false, nil
}

type harness struct {
	orch      *Orchestrator
	store     database.Store
	profiles  *profile.Manager
	messenger *fakeMessenger
	guard     *session.MemoryGuard
	backends  *backend.Table
	metrics   *metrics.Metrics
	renewals  *recordingRenewals
	cfg       *config.Config
}

type harnessOption func(*Deps)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "orchestrator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	cfg := testConfig()
	log := discardLogger()
	store := database.NewStore(db, log)
	registry := presets.Default()
	profiles := profile.NewManager(store, registry, []int64{99}, log, profile.WithClock(func() time.Time { return testNow }))
	gate := entitlement.NewGate(store, registry, cfg.Quota, profiles.IsAdmin, entitlement.Messages{
		LimitExhausted: cfg.Messages.LimitExhausted,
		UsageDenied:    cfg.Messages.UsageDenied,
	}, log)

	h := &harness{
		store:     store,
		profiles:  profiles,
		messenger: &fakeMessenger{},
		guard:     session.NewMemoryGuard(),
		backends:  backend.NewTable(),
		metrics:   metrics.New(prometheus.NewRegistry()),
		renewals:  &recordingRenewals{},
		cfg:       cfg,
	}

	deps := Deps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Profiles:  profiles,
		Gate:      gate,
		Builder:   dialog.NewBuilder(store, registry, 0, log),
		Backends:  h.backends,
		Guard:     h.guard,
		Messenger: h.messenger,
		Files:     fakeFiles{data: []byte("OggS")},
		Renewals:  h.renewals,
		Metrics:   h.metrics,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.orch = New(deps)
	return h
}

func (h *harness) subscribe(t *testing.T, userID int64, modelKey string) {
	t.Helper()
	ctx := context.Background()

	_, err := h.profiles.Load(ctx, profile.Identity{UserID: userID})
	require.NoError(t, err)
	end := testNow.AddDate(0, 0, 30)
	require.NoError(t, h.store.ActivateSubscription(ctx, userID, testNow, &end))
	if modelKey != "" {
		require.NoError(t, h.store.SetModel(ctx, userID, modelKey))
	}
}
