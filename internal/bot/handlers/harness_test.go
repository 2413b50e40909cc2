package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"github.com/edgard/personabot/internal/backend"
	"github.com/edgard/personabot/internal/broadcast"
	"github.com/edgard/personabot/internal/chat"
	"github.com/edgard/personabot/internal/config"
	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/dialog"
	"github.com/edgard/personabot/internal/entitlement"
	"github.com/edgard/personabot/internal/orchestrator"
	"github.com/edgard/personabot/internal/presets"
	"github.com/edgard/personabot/internal/profile"
	"github.com/edgard/personabot/internal/session"
	"github.com/edgard/personabot/internal/subscription"
)

const (
	testToken = "123456:TEST"
	adminID   = 99
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{AdminIDs: []int64{adminID}},
		Quota: config.QuotaConfig{
			FreeLimit:      2,
			MaxHistory:     10,
			DefaultModel:   "gpt-4o",
			DefaultPersona: "tarot_reader",
		},
		Subscription: config.SubscriptionConfig{
			Price:       150,
			Days:        30,
			Currency:    "XTR",
			Title:       "Subscription",
			Description: "Unlimited access",
			Label:       "30 days",
		},
		Broadcast: config.BroadcastConfig{Rate: 1000, Burst: 100},
		Messages: config.MessagesConfig{
			Welcome:               "welcome",
			Help:                  "help text",
			UnknownCommand:        "unknown command",
			Busy:                  "busy",
			ModelUnavailable:      "model unavailable",
			LimitExhausted:        "limit for %s",
			UsageDenied:           "denied",
			Thinking:              "%s answers as %s",
			ProviderError:         "provider error",
			GeneralError:          "general error",
			SubscribeToUnlock:     "subscribe to unlock",
			SubscribeModel:        "subscribe for model",
			SubscribePersona:      "subscribe for persona",
			CustomPromptRequest:   "describe the persona",
			CustomPromptEmpty:     "empty prompt",
			CustomPromptTooLong:   "prompt longer than %d",
			CustomPromptSaved:     "prompt saved",
			ModelMenu:             "pick a model",
			PersonaMenu:           "pick a persona",
			ModelSelected:         "model %s: %s",
			PersonaSelected:       "persona %s: %s",
			AlreadySelected:       "already selected",
			Profile:               "id %d model %s persona %s subscription %s since %s",
			Statistics:            "stats:\n%s",
			StatisticsEmpty:       "no requests",
			SubscriptionNone:      "none",
			SubscriptionForever:   "forever",
			SubscriptionUntil:     "until %s",
			SpeechOn:              "on",
			SpeechOff:             "off",
			SpeechSettings:        "input %s reply %s",
			HistoryEmpty:          "history empty",
			HistoryEnd:            "end of history",
			HistoryHeader:         "history:",
			HistoryEntry:          "%s %s\nQ: %s\nA: %s",
			ClearConfirm:          "clear?",
			HistoryCleared:        "cleared %d",
			ClearCancelled:        "clear cancelled",
			SubscriptionActivated: "subscribed for %d days",
			AlreadySubscribed:     "already subscribed until %s",
			AdminPermanent:        "admin forever",
			Unsubscribed:          "unsubscribed",
			NotSubscribed:         "not subscribed",
			PaymentRejected:       "payment rejected",
			NotAuthorized:         "not authorized",
			AdminPanel:            "admin panel",
			UsersEmpty:            "no users",
			UsersHeader:           "users (%d):",
			GrantPrompt:           "who gets it?",
			RevokePrompt:          "who loses it?",
			GrantDone:             "granted: %s",
			RevokeDone:            "revoked: %s",
			TargetsNotFound:       "nobody found",
			BroadcastPrompt:       "broadcast text?",
			BroadcastConfirm:      "send?\n%s",
			BroadcastInProgress:   "sending",
			BroadcastReport:       "sent %d failed %d",
			BroadcastCancelled:    "broadcast cancelled",
		},
	}
}

type delivery struct {
	Kind   string
	ChatID int64
	Text   string
	Opts   chat.SendOptions
	Ref    chat.MessageRef
}

type fakeMessenger struct {
	mu       sync.Mutex
	nextID   int
	sent     []delivery
	invoices []chat.Invoice
}

func (m *fakeMessenger) record(kind string, chatID int64, text string, opts chat.SendOptions, ref chat.MessageRef) chat.MessageRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ref.MessageID == 0 {
		m.nextID++
		ref = chat.MessageRef{ChatID: chatID, MessageID: m.nextID}
	}
	m.sent = append(m.sent, delivery{Kind: kind, ChatID: chatID, Text: text, Opts: opts, Ref: ref})
	return ref
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string, opts chat.SendOptions) (chat.MessageRef, error) {
	return m.record("text", chatID, text, opts, chat.MessageRef{}), nil
}

func (m *fakeMessenger) SendImage(_ context.Context, chatID int64, _ []byte, caption string) (chat.MessageRef, error) {
	return m.record("image", chatID, caption, chat.SendOptions{}, chat.MessageRef{}), nil
}

func (m *fakeMessenger) SendAudio(_ context.Context, chatID int64, _ []byte) (chat.MessageRef, error) {
	return m.record("audio", chatID, "", chat.SendOptions{}, chat.MessageRef{}), nil
}

func (m *fakeMessenger) EditText(_ context.Context, ref chat.MessageRef, text string, opts chat.SendOptions) error {
	m.record("edit", ref.ChatID, text, opts, ref)
	return nil
}

func (m *fakeMessenger) DeleteMessage(context.Context, chat.MessageRef) error { return nil }

func (m *fakeMessenger) SendInvoice(_ context.Context, chatID int64, invoice chat.Invoice) (chat.MessageRef, error) {
	m.mu.Lock()
	m.invoices = append(m.invoices, invoice)
	m.mu.Unlock()
	return m.record("invoice", chatID, invoice.Title, chat.SendOptions{}, chat.MessageRef{}), nil
}

func (m *fakeMessenger) deliveries() []delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]delivery(nil), m.sent...)
}

func (m *fakeMessenger) last() delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

func (m *fakeMessenger) textsTo(chatID int64) []string {
	var out []string
	for _, d := range m.deliveries() {
		if d.ChatID == chatID && (d.Kind == "text" || d.Kind == "edit") {
			out = append(out, d.Text)
		}
	}
	return out
}

type apiCall struct {
	Method string
	Fields map[string]string
}

// fakeAPI stands in for the Bot API methods handlers call directly.
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := apiCall{Method: strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/"), Fields: map[string]string{}}
	if err := r.ParseMultipartForm(1 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			call.Fields[k] = v[0]
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
}

func (f *fakeAPI) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

type stubAdapter struct {
	answer string
	calls  int
	mu     sync.Mutex
}

func (s *stubAdapter) Capability() presets.Capability { return presets.CapabilityText }

func (s *stubAdapter) Invoke(context.Context, backend.Request) backend.Result {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return backend.Result{Outcome: backend.Success, Kind: backend.KindText, Text: s.answer}
}

type harness struct {
	deps      HandlerDeps
	bot       *tgbot.Bot
	api       *fakeAPI
	messenger *fakeMessenger
	store     database.Store
	adapter   *stubAdapter
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	b, err := tgbot.New(testToken, tgbot.WithServerURL(srv.URL), tgbot.WithSkipGetMe())
	require.NoError(t, err)

	cfg := testConfig()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return testNow }

	store := database.NewStore(db, log)
	registry := presets.Default()
	profiles := profile.NewManager(store, registry, cfg.Telegram.AdminIDs, log, profile.WithClock(clock))
	gate := entitlement.NewGate(store, registry, cfg.Quota, profiles.IsAdmin, entitlement.Messages{
		LimitExhausted: cfg.Messages.LimitExhausted,
		UsageDenied:    cfg.Messages.UsageDenied,
	}, log)

	messenger := &fakeMessenger{}
	adapter := &stubAdapter{answer: "the answer"}
	backends := backend.NewTable()
	backends.Register("gpt-4o", adapter)
	backends.Register("sonar", adapter)

	orch := orchestrator.New(orchestrator.Deps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Profiles:  profiles,
		Gate:      gate,
		Builder:   dialog.NewBuilder(store, registry, 0, log),
		Backends:  backends,
		Guard:     session.NewMemoryGuard(),
		Messenger: messenger,
	})

	deps := HandlerDeps{
		Logger:        log,
		Config:        cfg,
		Store:         store,
		Profiles:      profiles,
		Orchestrator:  orch,
		Subscriptions: subscription.NewService(store, messenger, cfg.Subscription, log, subscription.WithClock(clock)),
		Broadcaster:   broadcast.New(messenger, cfg.Broadcast.Rate, cfg.Broadcast.Burst, nil, log),
		States:        session.NewStates(),
		Messenger:     messenger,
		Backends:      backends,
	}

	return &harness{deps: deps, bot: b, api: api, messenger: messenger, store: store, adapter: adapter}
}

func (h *harness) register(t *testing.T, userID int64, username string) {
	t.Helper()
	_, err := h.deps.Profiles.Load(context.Background(), profile.Identity{UserID: userID, Username: username})
	require.NoError(t, err)
}

func (h *harness) subscribe(t *testing.T, userID int64) {
	t.Helper()
	h.register(t, userID, "")
	end := testNow.AddDate(0, 0, 30)
	require.NoError(t, h.store.ActivateSubscription(context.Background(), userID, testNow, &end))
}

func (h *harness) profile(t *testing.T, userID int64) *database.UserProfile {
	t.Helper()
	p, err := h.store.GetUserProfile(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

// lastAnswer returns the text of the most recent callback answer.
func (h *harness) lastAnswer(t *testing.T) apiCall {
	t.Helper()
	calls := h.api.callsTo("answerCallbackQuery")
	require.NotEmpty(t, calls)
	return calls[len(calls)-1]
}

func findButton(kb chat.Keyboard, data string) (chat.Button, bool) {
	for _, row := range kb {
		for _, b := range row {
			if b.Data == data {
				return b, true
			}
		}
	}
	return chat.Button{}, false
}

func messageUpdate(userID int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			From: &models.User{ID: userID, FirstName: "Ann"},
			Chat: models.Chat{ID: userID},
			Text: text,
		},
	}
}

func callbackUpdate(userID int64, data string) *models.Update {
	return &models.Update{
		ID: 2,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-1",
			From: models.User{ID: userID, FirstName: "Ann"},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 55, Chat: models.Chat{ID: userID}},
			},
		},
	}
}
