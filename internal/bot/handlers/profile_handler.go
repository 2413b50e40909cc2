package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// profileHandler renders the profile card and the monthly statistics view.
type profileHandler struct {
	deps HandlerDeps
}

func (h profileHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "profile")
	msgs := h.deps.Config.Messages

	a, ok := actorOf(update)
	if !ok {
		return
	}
	p, ok := loadProfile(ctx, b, h.deps, log, a)
	if !ok {
		return
	}
	answer(ctx, b, log, a.CallbackID, "", false)

	registry := h.deps.Profiles.Registry()
	model := registry.ResolveModel(p.ModelKey)
	persona := registry.ResolvePersona(p.PersonaKey)

	text := fmt.Sprintf(msgs.Profile,
		p.UserID,
		html.EscapeString(model.Name),
		html.EscapeString(persona.Name),
		html.EscapeString(subscriptionStatus(msgs, p)),
		p.RegisteredAt.Format(dateFormat),
	)
	reply(ctx, h.deps, log, a.ChatID, text, withKeyboard(sendHTML, profileKeyboard(subscribed(h.deps, p))))
}

// HandleStatistics lists this month's request counts per model in menu order.
func (h profileHandler) HandleStatistics(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "statistics")
	msgs := h.deps.Config.Messages

	a, ok := actorOf(update)
	if !ok {
		return
	}
	if _, ok := loadProfile(ctx, b, h.deps, log, a); !ok {
		return
	}

	usage, err := h.deps.Store.GetMonthlyUsage(ctx, a.UserID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to read monthly usage", "error", err, "user_id", a.UserID)
		answer(ctx, b, log, a.CallbackID, "", false)
		fail(ctx, h.deps, log, a.ChatID)
		return
	}
	answer(ctx, b, log, a.CallbackID, "", false)

	var lines []string
	for _, m := range h.deps.Profiles.Registry().Models() {
		if n := usage[m.Key]; n > 0 {
			lines = append(lines, fmt.Sprintf("• %s: %d", html.EscapeString(m.Name), n))
		}
	}

	body := msgs.StatisticsEmpty
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}
	reply(ctx, h.deps, log, a.ChatID, fmt.Sprintf(msgs.Statistics, body), sendHTML)
}
