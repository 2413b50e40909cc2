package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	apperrors "github.com/edgard/personabot/internal/errors"
	"github.com/edgard/personabot/internal/orchestrator"
	"github.com/edgard/personabot/internal/session"
)

// NewDefaultHandler returns the handler for updates no route matched.
func NewDefaultHandler(deps HandlerDeps) bot.HandlerFunc {
	return defaultHandler{deps}.Handle
}

// defaultHandler routes pending input first, then voice and text to the orchestrator.
type defaultHandler struct {
	deps HandlerDeps
}

func (h defaultHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		if update.CallbackQuery != nil {
			answer(ctx, b, h.deps.Logger.With("handler", "default"), update.CallbackQuery.ID, "", false)
		}
		return
	}

	a, _ := actorOf(update)

	if msg.Text != "" && !strings.HasPrefix(msg.Text, "/") && h.handlePending(ctx, a, msg.Text) {
		return
	}

	switch {
	case msg.Voice != nil:
		h.deps.Orchestrator.HandleVoice(ctx, orchestrator.InboundVoice{
			UserID:    a.UserID,
			ChatID:    a.ChatID,
			FirstName: a.FirstName,
			Username:  a.Username,
			FileID:    msg.Voice.FileID,
		})
	case msg.Text != "":
		h.deps.Orchestrator.HandleText(ctx, orchestrator.Inbound{
			UserID:    a.UserID,
			ChatID:    a.ChatID,
			FirstName: a.FirstName,
			Username:  a.Username,
			Text:      msg.Text,
		})
	default:
		h.deps.Logger.DebugContext(ctx, "Ignoring unsupported message", "handler", "default", "chat_id", a.ChatID, "message_id", msg.ID)
	}
}

// handlePending consumes text the user owes the bot. It reports whether the
// text was consumed.
func (h defaultHandler) handlePending(ctx context.Context, a actor, input string) bool {
	log := h.deps.Logger.With("handler", "pending_input")

	state, _ := h.deps.States.Take(a.UserID)
	if state == session.StateNone {
		return false
	}
	log.DebugContext(ctx, "Routing pending input", "user_id", a.UserID, "state", state.String())

	if state != session.AwaitingCustomPrompt && !h.deps.Config.IsAdmin(a.UserID) {
		log.WarnContext(ctx, "Dropping admin state of non-admin user", "user_id", a.UserID, "state", state.String())
		return false
	}

	admin := adminHandler{h.deps}
	switch state {
	case session.AwaitingCustomPrompt:
		err := h.deps.Orchestrator.HandleCustomPrompt(ctx, a.UserID, a.ChatID, input)
		if apperrors.IsValidation(err) {
			h.deps.States.Set(a.UserID, session.AwaitingCustomPrompt, "")
		}
	case session.AwaitingGrantTargets, session.AwaitingRevokeTargets:
		admin.applyTargets(ctx, a, state, input)
	case session.AwaitingBroadcastText, session.AwaitingBroadcastConfirm:
		admin.draftBroadcast(ctx, a, input)
	default:
		return false
	}
	return true
}
