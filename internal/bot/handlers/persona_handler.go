package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/personabot/internal/presets"
	"github.com/edgard/personabot/internal/session"
)

// personaHandler shows the persona menu and applies persona selections.
// Picking the custom persona asks for the prompt text first.
type personaHandler struct {
	deps HandlerDeps
}

func (h personaHandler) HandleMenu(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "persona_menu")

	a, ok := actorOf(update)
	if !ok {
		return
	}
	p, ok := loadProfile(ctx, b, h.deps, log, a)
	if !ok {
		return
	}

	answer(ctx, b, log, a.CallbackID, "", false)
	kb := personaKeyboard(h.deps.Profiles.Registry().Personas(), p.PersonaKey, subscribed(h.deps, p))
	reply(ctx, h.deps, log, a.ChatID, h.deps.Config.Messages.PersonaMenu, withKeyboard(sendPlain, kb))
}

func (h personaHandler) HandleSelect(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "persona_select")
	msgs := h.deps.Config.Messages

	a, ok := actorOf(update)
	if !ok {
		return
	}
	key := strings.TrimPrefix(a.Data, callbackPersonaPrefix)
	registry := h.deps.Profiles.Registry()

	persona, ok := registry.Persona(key)
	if !ok {
		log.WarnContext(ctx, "Unknown persona selected", "persona", key, "user_id", a.UserID)
		answer(ctx, b, log, a.CallbackID, "", false)
		return
	}

	p, ok := loadProfile(ctx, b, h.deps, log, a)
	if !ok {
		return
	}
	isSubscribed := subscribed(h.deps, p)

	if !persona.Free && !isSubscribed {
		answer(ctx, b, log, a.CallbackID, msgs.SubscribePersona, true)
		return
	}

	if key == presets.CustomPersonaKey {
		h.deps.States.Set(a.UserID, session.AwaitingCustomPrompt, "")
		answer(ctx, b, log, a.CallbackID, "", false)
		reply(ctx, h.deps, log, a.ChatID, msgs.CustomPromptRequest, sendPlain)
		return
	}

	if p.PersonaKey == key {
		answer(ctx, b, log, a.CallbackID, msgs.AlreadySelected, false)
		return
	}

	if err := h.deps.Store.SetPersona(ctx, a.UserID, key); err != nil {
		log.ErrorContext(ctx, "Failed to save persona selection", "error", err, "user_id", a.UserID, "persona", key)
		answer(ctx, b, log, a.CallbackID, "", false)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}

	log.InfoContext(ctx, "Persona selected", "user_id", a.UserID, "persona", key)
	answer(ctx, b, log, a.CallbackID, "", false)

	text := fmt.Sprintf(msgs.PersonaSelected, html.EscapeString(persona.Name), html.EscapeString(persona.Description))
	kb := personaKeyboard(registry.Personas(), key, isSubscribed)
	show(ctx, h.deps, log, a, text, withKeyboard(sendHTML, kb))
}
