// Package orchestrator runs the per-message request flow: single-flight guard,
// profile load, entitlement gate, context build, backend dispatch, persistence
// and delivery. Every entry point is a recovery boundary.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

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
	"github.com/edgard/personabot/internal/text"
)

const (
	messageLimit    = 4096
	captionLimit    = 1024
	imageFetchLimit = 20 << 20
	imageTimeout    = 60 * time.Second
)

// Inbound is a text message from a user.
type Inbound struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Username  string
	Text      string
}

func (in Inbound) identity() profile.Identity {
	return profile.Identity{UserID: in.UserID, FirstName: in.FirstName, Username: in.Username}
}

// InboundVoice is a voice message from a user.
type InboundVoice struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Username  string
	FileID    string
}

func (in InboundVoice) identity() profile.Identity {
	return profile.Identity{UserID: in.UserID, FirstName: in.FirstName, Username: in.Username}
}

// RenewalChecker sends a renewal prompt to a single user when due.
type RenewalChecker interface {
	CheckUser(ctx context.Context, userID int64, now time.Time) (bool, error)
}

// Deps are the collaborators of the Orchestrator.
type Deps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Store      database.Store
	Profiles   *profile.Manager
	Gate       *entitlement.Gate
	Builder    *dialog.Builder
	Backends   *backend.Table
	Guard      session.Guard
	Messenger  chat.Messenger
	Files      chat.FileFetcher
	Renewals   RenewalChecker
	Reaper     *Reaper
	Metrics    *metrics.Metrics
	HTTPClient *http.Client
}

// Orchestrator runs inbound user requests through the gate, the context
// builder and the backend table, and delivers the results.
type Orchestrator struct {
	deps     Deps
	msgs     config.MessagesConfig
	registry *presets.Registry
	log      *slog.Logger
}

// New creates an Orchestrator, filling in a default HTTP client and reaper.
func New(deps Deps) *Orchestrator {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: imageTimeout}
	}
	if deps.Reaper == nil {
		deps.Reaper = NewReaper(deps.Messenger.DeleteMessage, deps.Config.Notices.TransientTTL, deps.Logger)
	}
	return &Orchestrator{
		deps:     deps,
		msgs:     deps.Config.Messages,
		registry: deps.Profiles.Registry(),
		log:      deps.Logger.With("component", "orchestrator"),
	}
}

// Reaper returns the transient notice reaper, flushed on shutdown.
func (o *Orchestrator) Reaper() *Reaper { return o.deps.Reaper }

// HandleText runs the full request flow for one text message.
func (o *Orchestrator) HandleText(ctx context.Context, in Inbound) {
	log := o.log.With("request_id", uuid.NewString(), "user_id", in.UserID, "chat_id", in.ChatID)

	if isCommand(in.Text) {
		log.DebugContext(ctx, "Unhandled command", "text", text.Preview(in.Text, 32))
		o.notice(ctx, log, in.ChatID, o.msgs.UnknownCommand)
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		return
	}

	o.guarded(ctx, log, in.UserID, in.ChatID, func() error {
		return o.process(ctx, log, in)
	})
}

// HandleVoice transcribes a voice message for a subscriber, echoes the
// transcript and answers it when the user enabled voice input.
func (o *Orchestrator) HandleVoice(ctx context.Context, in InboundVoice) {
	log := o.log.With("request_id", uuid.NewString(), "user_id", in.UserID, "chat_id", in.ChatID)

	o.guarded(ctx, log, in.UserID, in.ChatID, func() error {
		return o.processVoice(ctx, log, in)
	})
}

// guarded holds the user's single-flight slot around fn. The slot is released
// on every exit path, including panics.
func (o *Orchestrator) guarded(ctx context.Context, log *slog.Logger, userID, chatID int64, fn func() error) {
	acquired, err := o.deps.Guard.Acquire(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to acquire request slot", "error", err)
		o.fail(ctx, log, chatID)
		return
	}
	if !acquired {
		o.deps.Metrics.BusyRejected()
		log.InfoContext(ctx, "Request rejected, another one is in flight")
		o.notice(ctx, log, chatID, o.msgs.Busy)
		return
	}
	defer o.deps.Guard.Release(context.WithoutCancel(ctx), userID)

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Recovered from panic while handling request", "panic", r, "stack", string(debug.Stack()))
			o.fail(ctx, log, chatID)
		}
	}()

	if err := fn(); err != nil {
		log.ErrorContext(ctx, "Request failed", "error", err)
		o.fail(ctx, log, chatID)
	}
}

func (o *Orchestrator) process(ctx context.Context, log *slog.Logger, in Inbound) error {
	p, err := o.deps.Profiles.Load(ctx, in.identity())
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	o.checkRenewal(ctx, log, in.UserID)

	model := o.registry.ResolveModel(p.ModelKey)
	persona := o.registry.ResolvePersona(p.PersonaKey)
	log = log.With("model", model.Key, "persona", persona.Key)

	adapter, ok := o.deps.Backends.Lookup(model.Key)
	if !ok || (model.Capability != presets.CapabilityText && model.Capability != presets.CapabilityImage) {
		log.WarnContext(ctx, "Selected model has no backend")
		o.send(ctx, log, in.ChatID, o.msgs.ModelUnavailable, chat.SendOptions{})
		return nil
	}

	decision, err := o.deps.Gate.CheckUsage(ctx, in.UserID, model.Key)
	if err != nil {
		return fmt.Errorf("failed to check usage: %w", err)
	}
	if !decision.Allowed {
		o.deps.Metrics.GateDenied(model.Key)
		o.send(ctx, log, in.ChatID, decision.Reason+o.msgs.Upsell, chat.SendOptions{})
		return nil
	}

	if model.Capability == presets.CapabilityImage {
		return o.dispatchImage(ctx, log, in, model, persona, adapter)
	}
	return o.dispatchText(ctx, log, in, p, model, persona, adapter)
}

func (o *Orchestrator) dispatchText(ctx context.Context, log *slog.Logger, in Inbound, p *database.UserProfile, model presets.Model, persona presets.Persona, adapter backend.Adapter) error {
	messages, err := o.deps.Builder.BuildMessages(ctx, in.UserID, persona.Key, in.Text, o.deps.Config.Quota.MaxHistory)
	if err != nil {
		return fmt.Errorf("failed to build context: %w", err)
	}

	req := backend.Request{
		ModelKey:      model.Key,
		ProviderModel: model.ProviderModel,
		Params:        o.registry.EffectiveParams(model, persona),
		Messages:      messages,
	}

	result := o.invoke(ctx, log, in.ChatID, fmt.Sprintf(o.msgs.Thinking, model.Name, persona.Name), adapter, req)
	if !result.OK() {
		o.deliverFailure(ctx, log, in.ChatID, result)
		return nil
	}

	answer := text.CleanResponse(result.Text)
	if answer == "" {
		log.WarnContext(ctx, "Backend answer is empty after sanitizing")
		o.send(ctx, log, in.ChatID, o.msgs.ProviderError, chat.SendOptions{})
		return nil
	}

	entry := &database.HistoryEntry{
		UserID:    in.UserID,
		ModelKey:  model.Key,
		Query:     in.Text,
		Response:  answer,
		CreatedAt: o.deps.Profiles.Now(),
	}
	if err := o.deps.Store.SaveHistory(ctx, entry); err != nil {
		log.ErrorContext(ctx, "Failed to save history", "error", err)
	}
	if err := o.deps.Store.IncrementMonthlyUsage(ctx, in.UserID, model.Key); err != nil {
		log.ErrorContext(ctx, "Failed to increment monthly usage", "error", err)
	}

	if p.VoiceReply && o.speak(ctx, log, in.ChatID, answer) {
		return nil
	}
	o.sendLong(ctx, log, in.ChatID, answer)
	return nil
}

func (o *Orchestrator) dispatchImage(ctx context.Context, log *slog.Logger, in Inbound, model presets.Model, persona presets.Persona, adapter backend.Adapter) error {
	req := backend.Request{
		ModelKey:      model.Key,
		ProviderModel: model.ProviderModel,
		Params:        o.registry.EffectiveParams(model, persona),
		Messages:      []backend.Message{{Role: backend.RoleUser, Content: in.Text}},
	}

	result := o.invoke(ctx, log, in.ChatID, fmt.Sprintf(o.msgs.GeneratingImage, model.Name), adapter, req)
	if !result.OK() {
		o.deliverFailure(ctx, log, in.ChatID, result)
		return nil
	}

	image := result.ImageData
	if len(image) == 0 {
		var err error
		image, err = o.fetchImage(ctx, result.ImageURL)
		if err != nil {
			return fmt.Errorf("failed to download generated image: %w", err)
		}
	}

	if err := o.deps.Store.IncrementMonthlyUsage(ctx, in.UserID, model.Key); err != nil {
		log.ErrorContext(ctx, "Failed to increment monthly usage", "error", err)
	}

	if _, err := o.deps.Messenger.SendImage(ctx, in.ChatID, image, text.Truncate(in.Text, captionLimit)); err != nil {
		log.WarnContext(ctx, "Failed to deliver image", "error", err)
	}
	return nil
}

// invoke shows a working notice, if any, while the backend runs and removes it afterwards.
func (o *Orchestrator) invoke(ctx context.Context, log *slog.Logger, chatID int64, working string, adapter backend.Adapter, req backend.Request) backend.Result {
	var ref chat.MessageRef
	if working != "" {
		ref = o.send(ctx, log, chatID, working, chat.SendOptions{})
	}

	start := time.Now()
	result := adapter.Invoke(ctx, req)
	duration := time.Since(start)
	o.deps.Metrics.ObserveRequest(req.ModelKey, result.Outcome.String(), duration)
	log.InfoContext(ctx, "Backend call finished", "outcome", result.Outcome.String(), "duration", duration)

	if ref.MessageID != 0 {
		if err := o.deps.Messenger.DeleteMessage(context.WithoutCancel(ctx), ref); err != nil {
			log.DebugContext(ctx, "Failed to delete working notice", "error", err)
		}
	}
	return result
}

func (o *Orchestrator) deliverFailure(ctx context.Context, log *slog.Logger, chatID int64, result backend.Result) {
	log.ErrorContext(ctx, "Backend call failed", "outcome", result.Outcome.String(), "detail", result.Detail)

	var message string
	switch result.Outcome {
	case backend.RateLimited:
		message = o.msgs.RateLimited
	case backend.ContentPolicy:
		message = o.msgs.ContentPolicy
	case backend.Unavailable:
		message = o.msgs.ProviderUnavailable
	default:
		message = o.msgs.ProviderError
	}
	o.send(ctx, log, chatID, message, chat.SendOptions{})
}

// speak answers with synthesized audio. It reports false when the caller should
// fall back to text.
func (o *Orchestrator) speak(ctx context.Context, log *slog.Logger, chatID int64, answer string) bool {
	key := o.deps.Config.Speech.Synthesizer
	adapter, ok := o.deps.Backends.Lookup(key)
	if !ok {
		log.WarnContext(ctx, "Voice reply requested but no synthesizer is configured", "synthesizer", key)
		return false
	}

	start := time.Now()
	result := adapter.Invoke(ctx, backend.Request{
		ModelKey: key,
		Messages: []backend.Message{{Role: backend.RoleUser, Content: answer}},
	})
	o.deps.Metrics.ObserveRequest(key, result.Outcome.String(), time.Since(start))
	if !result.OK() || len(result.Audio) == 0 {
		log.WarnContext(ctx, "Speech synthesis failed, sending text", "outcome", result.Outcome.String(), "detail", result.Detail)
		return false
	}

	if _, err := o.deps.Messenger.SendAudio(ctx, chatID, result.Audio); err != nil {
		log.WarnContext(ctx, "Failed to deliver voice reply, sending text", "error", err)
		return false
	}
	return true
}

func (o *Orchestrator) checkRenewal(ctx context.Context, log *slog.Logger, userID int64) {
	if o.deps.Renewals == nil {
		return
	}
	if _, err := o.deps.Renewals.CheckUser(ctx, userID, o.deps.Profiles.Now()); err != nil {
		log.WarnContext(ctx, "Renewal check failed", "error", err)
	}
}

func (o *Orchestrator) fetchImage(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("backend returned neither image data nor URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}
	resp, err := o.deps.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}
	return readLimited(resp.Body, imageFetchLimit)
}

// send delivers a message and logs delivery failures.
func (o *Orchestrator) send(ctx context.Context, log *slog.Logger, chatID int64, message string, opts chat.SendOptions) chat.MessageRef {
	ref, err := o.deps.Messenger.SendText(ctx, chatID, message, opts)
	if err != nil {
		log.WarnContext(ctx, "Failed to send message", "error", err)
	}
	return ref
}

func (o *Orchestrator) sendLong(ctx context.Context, log *slog.Logger, chatID int64, message string) {
	for _, chunk := range text.Chunks(message, messageLimit) {
		o.send(ctx, log, chatID, chunk, chat.SendOptions{})
	}
}

// notice sends a message that the reaper removes after the transient ttl.
func (o *Orchestrator) notice(ctx context.Context, log *slog.Logger, chatID int64, message string) {
	ref := o.send(ctx, log, chatID, message, chat.SendOptions{})
	o.deps.Reaper.Schedule(ref)
}

// Notice sends a transient notice on behalf of a handler.
func (o *Orchestrator) Notice(ctx context.Context, chatID int64, message string) {
	o.notice(ctx, o.log, chatID, message)
}

func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, chatID int64) {
	o.send(context.WithoutCancel(ctx), log, chatID, o.msgs.GeneralError, chat.SendOptions{SupportButton: true})
}

func isCommand(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "/")
}
