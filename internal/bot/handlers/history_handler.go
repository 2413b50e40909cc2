package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/text"
)

const (
	historyQueryPreview    = 300
	historyResponsePreview = 700
)

// historyHandler pages through stored exchanges, newest first, and clears them
// after confirmation.
type historyHandler struct {
	deps HandlerDeps
}

func (h historyHandler) HandleFirstPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	a, ok := actorOf(update)
	if !ok {
		return
	}
	h.page(ctx, b, a, 0, false)
}

func (h historyHandler) HandlePage(ctx context.Context, b *bot.Bot, update *models.Update) {
	a, ok := actorOf(update)
	if !ok {
		return
	}
	offset, err := strconv.Atoi(strings.TrimPrefix(a.Data, callbackHistoryPagePrefix))
	if err != nil || offset < 0 {
		offset = 0
	}
	h.page(ctx, b, a, offset, true)
}

func (h historyHandler) page(ctx context.Context, b *bot.Bot, a actor, offset int, edit bool) {
	log := h.deps.Logger.With("handler", "history")
	msgs := h.deps.Config.Messages

	total, err := h.deps.Store.CountHistory(ctx, a.UserID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to count history", "error", err, "user_id", a.UserID)
		answer(ctx, b, log, a.CallbackID, "", false)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}

	switch {
	case total == 0:
		respond(ctx, b, h.deps, log, a, msgs.HistoryEmpty)
		return
	case offset >= total:
		answer(ctx, b, log, a.CallbackID, msgs.HistoryEnd, true)
		return
	}

	entries, err := h.deps.Store.GetHistoryPage(ctx, a.UserID, offset, historyPageSize)
	if err != nil {
		log.ErrorContext(ctx, "Failed to read history page", "error", err, "user_id", a.UserID, "offset", offset)
		answer(ctx, b, log, a.CallbackID, "", false)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}
	answer(ctx, b, log, a.CallbackID, "", false)

	body := h.format(entries)
	opts := withKeyboard(sendPlain, historyKeyboard(offset))
	if edit {
		show(ctx, h.deps, log, a, body, opts)
		return
	}
	reply(ctx, h.deps, log, a.ChatID, body, opts)
}

func (h historyHandler) format(entries []database.HistoryEntry) string {
	msgs := h.deps.Config.Messages
	registry := h.deps.Profiles.Registry()

	parts := make([]string, 0, len(entries)+1)
	parts = append(parts, msgs.HistoryHeader)
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf(msgs.HistoryEntry,
			e.CreatedAt.Format(dateFormat+" 15:04"),
			registry.ResolveModel(e.ModelKey).Name,
			text.Truncate(e.Query, historyQueryPreview),
			text.Truncate(e.Response, historyResponsePreview),
		))
	}
	return strings.Join(parts, "\n\n")
}

func (h historyHandler) HandleClearPrompt(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "history_clear")

	a, ok := actorOf(update)
	if !ok {
		return
	}
	answer(ctx, b, log, a.CallbackID, "", false)
	show(ctx, h.deps, log, a, h.deps.Config.Messages.ClearConfirm, withKeyboard(sendPlain, clearConfirmKeyboard()))
}

func (h historyHandler) HandleClearConfirm(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "history_clear")

	a, ok := actorOf(update)
	if !ok {
		return
	}

	removed, err := h.deps.Store.ClearHistory(ctx, a.UserID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to clear history", "error", err, "user_id", a.UserID)
		answer(ctx, b, log, a.CallbackID, "", false)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}

	log.InfoContext(ctx, "History cleared", "user_id", a.UserID, "removed", removed)
	answer(ctx, b, log, a.CallbackID, "", false)
	show(ctx, h.deps, log, a, fmt.Sprintf(h.deps.Config.Messages.HistoryCleared, removed), sendPlain)
}

func (h historyHandler) HandleClearCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "history_clear")

	a, ok := actorOf(update)
	if !ok {
		return
	}
	answer(ctx, b, log, a.CallbackID, "", false)
	show(ctx, h.deps, log, a, h.deps.Config.Messages.ClearCancelled, sendPlain)
}
