package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/personabot/internal/chat"
	"github.com/edgard/personabot/internal/database"
)

// speechHandler manages the subscriber-only voice preferences.
type speechHandler struct {
	deps HandlerDeps
}

func (h speechHandler) HandleMenu(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "speech_menu")

	a, ok := actorOf(update)
	if !ok {
		return
	}
	p, ok := loadProfile(ctx, b, h.deps, log, a)
	if !ok {
		return
	}
	if !subscribed(h.deps, p) {
		respond(ctx, b, h.deps, log, a, h.deps.Config.Messages.SubscribeToUnlock)
		return
	}

	answer(ctx, b, log, a.CallbackID, "", false)
	text, opts := h.render(p.VoiceInput, p.VoiceReply)
	reply(ctx, h.deps, log, a.ChatID, text, opts)
}

func (h speechHandler) HandleToggle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "speech_toggle")

	a, ok := actorOf(update)
	if !ok {
		return
	}
	p, ok := loadProfile(ctx, b, h.deps, log, a)
	if !ok {
		return
	}
	if !subscribed(h.deps, p) {
		respond(ctx, b, h.deps, log, a, h.deps.Config.Messages.SubscribeToUnlock)
		return
	}

	input, replyVoice, ok := toggle(p, a.Data)
	if !ok {
		log.WarnContext(ctx, "Unknown speech toggle", "data", a.Data)
		answer(ctx, b, log, a.CallbackID, "", false)
		return
	}

	if err := h.deps.Store.SetVoicePreferences(ctx, a.UserID, input, replyVoice); err != nil {
		log.ErrorContext(ctx, "Failed to save voice preferences", "error", err, "user_id", a.UserID)
		answer(ctx, b, log, a.CallbackID, "", false)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}

	log.InfoContext(ctx, "Voice preferences updated", "user_id", a.UserID, "voice_input", input, "voice_reply", replyVoice)
	answer(ctx, b, log, a.CallbackID, "", false)

	text, opts := h.render(input, replyVoice)
	show(ctx, h.deps, log, a, text, opts)
}

func toggle(p *database.UserProfile, data string) (input, reply, ok bool) {
	switch data {
	case callbackSpeechInput:
		return !p.VoiceInput, p.VoiceReply, true
	case callbackSpeechReply:
		return p.VoiceInput, !p.VoiceReply, true
	default:
		return p.VoiceInput, p.VoiceReply, false
	}
}

func (h speechHandler) render(input, reply bool) (string, chat.SendOptions) {
	msgs := h.deps.Config.Messages
	label := func(on bool) string {
		if on {
			return msgs.SpeechOn
		}
		return msgs.SpeechOff
	}

	text := fmt.Sprintf(msgs.SpeechSettings, label(input), label(reply))
	return text, withKeyboard(sendHTML, speechKeyboard(label(input), label(reply)))
}
