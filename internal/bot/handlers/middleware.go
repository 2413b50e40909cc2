// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly creates a middleware that lets only configured admins through.
// Messages from other users get a "Not Authorized" reply, callbacks an alert.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			a, ok := actorOf(update)
			if !ok {
				return
			}
			if deps.Config.IsAdmin(a.UserID) {
				next(ctx, bot, update)
				return
			}

			log := deps.Logger.With("middleware", "AdminOnly")
			log.WarnContext(ctx, "Unauthorized access attempt", "user_id", a.UserID, "chat_id", a.ChatID)

			if a.CallbackID != "" {
				answer(ctx, bot, log, a.CallbackID, deps.Config.Messages.NotAuthorized, true)
				return
			}
			if _, err := deps.Messenger.SendText(ctx, a.ChatID, deps.Config.Messages.NotAuthorized, sendPlain); err != nil {
				log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", a.ChatID)
			}
		}
	}
}
