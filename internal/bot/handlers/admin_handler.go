package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	apperrors "github.com/edgard/personabot/internal/errors"
	"github.com/edgard/personabot/internal/session"
	"github.com/edgard/personabot/internal/text"
)

const messageLimit = 4096

// adminHandler implements the admin panel. Every entry point is wrapped in
// AdminOnly by the routing table.
type adminHandler struct {
	deps HandlerDeps
}

func (h adminHandler) HandlePanel(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "admin_panel")

	a, ok := actorOf(update)
	if !ok {
		return
	}
	h.deps.States.Clear(a.UserID)
	reply(ctx, h.deps, log, a.ChatID, h.deps.Config.Messages.AdminPanel, withKeyboard(sendPlain, adminKeyboard()))
}

func (h adminHandler) HandleUsers(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "admin_users")
	msgs := h.deps.Config.Messages

	a, ok := actorOf(update)
	if !ok {
		return
	}

	profiles, err := h.deps.Store.ListUserProfiles(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list users", "error", err)
		answer(ctx, b, log, a.CallbackID, "", false)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}
	answer(ctx, b, log, a.CallbackID, "", false)

	if len(profiles) == 0 {
		reply(ctx, h.deps, log, a.ChatID, msgs.UsersEmpty, sendPlain)
		return
	}

	lines := make([]string, 0, len(profiles)+1)
	lines = append(lines, fmt.Sprintf(msgs.UsersHeader, len(profiles)))
	for i := range profiles {
		p := &profiles[i]
		name := p.DisplayName()
		if name == "" {
			name = "—"
		}
		lines = append(lines, fmt.Sprintf("• %d · %s · %s", p.UserID, name, subscriptionStatus(msgs, p)))
	}

	for _, chunk := range text.Chunks(strings.Join(lines, "\n"), messageLimit) {
		reply(ctx, h.deps, log, a.ChatID, chunk, sendPlain)
	}
}

func (h adminHandler) HandleGrantPrompt(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.await(ctx, b, update, session.AwaitingGrantTargets, h.deps.Config.Messages.GrantPrompt)
}

func (h adminHandler) HandleRevokePrompt(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.await(ctx, b, update, session.AwaitingRevokeTargets, h.deps.Config.Messages.RevokePrompt)
}

func (h adminHandler) HandleBroadcastPrompt(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.await(ctx, b, update, session.AwaitingBroadcastText, h.deps.Config.Messages.BroadcastPrompt)
}

func (h adminHandler) await(ctx context.Context, b *bot.Bot, update *models.Update, state session.State, prompt string) {
	log := h.deps.Logger.With("handler", "admin_input")

	a, ok := actorOf(update)
	if !ok {
		return
	}
	h.deps.States.Set(a.UserID, state, "")
	log.DebugContext(ctx, "Awaiting admin input", "user_id", a.UserID, "state", state.String())

	answer(ctx, b, log, a.CallbackID, "", false)
	reply(ctx, h.deps, log, a.ChatID, prompt, sendPlain)
}

// applyTargets runs a grant or revoke over the admin's input. Input without any
// usable target keeps the state so the admin can try again.
func (h adminHandler) applyTargets(ctx context.Context, a actor, state session.State, input string) {
	log := h.deps.Logger.With("handler", "admin_targets")
	msgs := h.deps.Config.Messages

	apply, done := h.deps.Subscriptions.Grant, msgs.GrantDone
	if state == session.AwaitingRevokeTargets {
		apply, done = h.deps.Subscriptions.Revoke, msgs.RevokeDone
	}

	result, err := apply(ctx, input)
	switch {
	case apperrors.IsValidation(err):
		h.deps.States.Set(a.UserID, state, "")
		reply(ctx, h.deps, log, a.ChatID, msgs.TargetsNotFound, sendPlain)
		return
	case err != nil:
		log.ErrorContext(ctx, "Failed to apply subscription change", "error", err, "state", state.String())
		fail(ctx, h.deps, log, a.ChatID)
		return
	}

	log.InfoContext(ctx, "Admin subscription change applied", "admin_id", a.UserID, "state", state.String(),
		"applied", len(result.Applied), "not_found", len(result.NotFound))

	if len(result.Applied) == 0 {
		h.deps.States.Set(a.UserID, state, "")
		reply(ctx, h.deps, log, a.ChatID, msgs.TargetsNotFound, sendPlain)
		return
	}

	message := fmt.Sprintf(done, strings.Join(result.Applied, ", "))
	if len(result.NotFound) > 0 {
		message += "\n" + msgs.TargetsNotFound + ": " + strings.Join(result.NotFound, ", ")
	}
	reply(ctx, h.deps, log, a.ChatID, message, sendPlain)
}

// draftBroadcast stores the text and asks for confirmation.
func (h adminHandler) draftBroadcast(ctx context.Context, a actor, draft string) {
	log := h.deps.Logger.With("handler", "admin_broadcast")

	h.deps.States.Set(a.UserID, session.AwaitingBroadcastConfirm, draft)
	message := fmt.Sprintf(h.deps.Config.Messages.BroadcastConfirm, html.EscapeString(draft))
	reply(ctx, h.deps, log, a.ChatID, message, withKeyboard(sendHTML, broadcastConfirmKeyboard()))
}

func (h adminHandler) HandleBroadcastSend(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "admin_broadcast")
	msgs := h.deps.Config.Messages

	a, ok := actorOf(update)
	if !ok {
		return
	}

	state, draft := h.deps.States.Take(a.UserID)
	if state != session.AwaitingBroadcastConfirm || draft == "" {
		answer(ctx, b, log, a.CallbackID, msgs.BroadcastCancelled, false)
		return
	}
	answer(ctx, b, log, a.CallbackID, "", false)
	show(ctx, h.deps, log, a, msgs.BroadcastInProgress, sendPlain)

	profiles, err := h.deps.Store.ListUserProfiles(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list broadcast recipients", "error", err)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}
	recipients := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		recipients = append(recipients, p.UserID)
	}

	report := h.deps.Broadcaster.Send(ctx, recipients, draft, sendPlain)
	log.InfoContext(ctx, "Broadcast finished", "admin_id", a.UserID, "sent", report.Sent, "failed", report.Failed)
	reply(ctx, h.deps, log, a.ChatID, fmt.Sprintf(msgs.BroadcastReport, report.Sent, report.Failed), sendPlain)
}

func (h adminHandler) HandleBroadcastCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "admin_broadcast")

	a, ok := actorOf(update)
	if !ok {
		return
	}
	h.deps.States.Clear(a.UserID)
	answer(ctx, b, log, a.CallbackID, "", false)
	show(ctx, h.deps, log, a, h.deps.Config.Messages.BroadcastCancelled, sendPlain)
}
