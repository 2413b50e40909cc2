package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// modelHandler shows the model menu and applies model selections.
type modelHandler struct {
	deps HandlerDeps
}

func (h modelHandler) HandleMenu(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "model_menu")

	a, ok := actorOf(update)
	if !ok {
		return
	}
	p, ok := loadProfile(ctx, b, h.deps, log, a)
	if !ok {
		return
	}

	answer(ctx, b, log, a.CallbackID, "", false)
	kb := modelKeyboard(h.deps.Profiles.Registry().Models(), p.ModelKey, subscribed(h.deps, p))
	reply(ctx, h.deps, log, a.ChatID, h.deps.Config.Messages.ModelMenu, withKeyboard(sendPlain, kb))
}

func (h modelHandler) HandleSelect(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "model_select")
	msgs := h.deps.Config.Messages

	a, ok := actorOf(update)
	if !ok {
		return
	}
	key := strings.TrimPrefix(a.Data, callbackModelPrefix)
	registry := h.deps.Profiles.Registry()

	model, ok := registry.Model(key)
	if !ok || model.Hidden {
		log.WarnContext(ctx, "Unknown model selected", "model", key, "user_id", a.UserID)
		answer(ctx, b, log, a.CallbackID, msgs.ModelUnavailable, true)
		return
	}

	p, ok := loadProfile(ctx, b, h.deps, log, a)
	if !ok {
		return
	}
	isSubscribed := subscribed(h.deps, p)

	switch {
	case p.ModelKey == key:
		answer(ctx, b, log, a.CallbackID, msgs.AlreadySelected, false)
		return
	case !model.Free && !isSubscribed:
		answer(ctx, b, log, a.CallbackID, msgs.SubscribeModel, true)
		return
	case !h.deps.Backends.Has(key):
		answer(ctx, b, log, a.CallbackID, msgs.ModelUnavailable, true)
		return
	}

	if err := h.deps.Store.SetModel(ctx, a.UserID, key); err != nil {
		log.ErrorContext(ctx, "Failed to save model selection", "error", err, "user_id", a.UserID, "model", key)
		answer(ctx, b, log, a.CallbackID, "", false)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}

	log.InfoContext(ctx, "Model selected", "user_id", a.UserID, "model", key)
	answer(ctx, b, log, a.CallbackID, "", false)

	text := fmt.Sprintf(msgs.ModelSelected, html.EscapeString(model.Name), html.EscapeString(model.Description))
	kb := modelKeyboard(registry.Models(), key, isSubscribed)
	show(ctx, h.deps, log, a, text, withKeyboard(sendHTML, kb))
}
