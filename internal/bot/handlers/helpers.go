package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/personabot/internal/chat"
	"github.com/edgard/personabot/internal/config"
	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/profile"
)

const dateFormat = "02.01.2006"

var (
	sendPlain = chat.SendOptions{}
	sendHTML  = chat.SendOptions{HTML: true}
)

// actor is the sender of a message or callback update.
type actor struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Username  string
	// MessageID is the message a callback button belongs to.
	MessageID  int
	CallbackID string
	Data       string
}

func actorOf(update *models.Update) (actor, bool) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		a := actor{
			UserID:     cq.From.ID,
			ChatID:     cq.From.ID,
			FirstName:  cq.From.FirstName,
			Username:   cq.From.Username,
			CallbackID: cq.ID,
			Data:       cq.Data,
		}
		switch {
		case cq.Message.Message != nil:
			a.ChatID = cq.Message.Message.Chat.ID
			a.MessageID = cq.Message.Message.ID
		case cq.Message.InaccessibleMessage != nil:
			a.ChatID = cq.Message.InaccessibleMessage.Chat.ID
			a.MessageID = cq.Message.InaccessibleMessage.MessageID
		}
		return a, true
	case update.Message != nil && update.Message.From != nil:
		m := update.Message
		return actor{
			UserID:    m.From.ID,
			ChatID:    m.Chat.ID,
			FirstName: m.From.FirstName,
			Username:  m.From.Username,
		}, true
	default:
		return actor{}, false
	}
}

func (a actor) identity() profile.Identity {
	return profile.Identity{UserID: a.UserID, FirstName: a.FirstName, Username: a.Username}
}

func (a actor) isCallback() bool { return a.CallbackID != "" }

// answer acknowledges a callback query, optionally with a toast or alert.
func answer(ctx context.Context, b *tgbot.Bot, log *slog.Logger, callbackID, text string, alert bool) {
	if callbackID == "" {
		return
	}
	_, err := b.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "error", err)
	}
}

// respond answers a callback with an alert, or sends text for a command.
func respond(ctx context.Context, b *tgbot.Bot, deps HandlerDeps, log *slog.Logger, a actor, text string) {
	if a.isCallback() {
		answer(ctx, b, log, a.CallbackID, text, true)
		return
	}
	reply(ctx, deps, log, a.ChatID, text, sendPlain)
}

func reply(ctx context.Context, deps HandlerDeps, log *slog.Logger, chatID int64, text string, opts chat.SendOptions) {
	if _, err := deps.Messenger.SendText(ctx, chatID, text, opts); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// show edits the message a callback came from, or sends a new message for commands.
func show(ctx context.Context, deps HandlerDeps, log *slog.Logger, a actor, text string, opts chat.SendOptions) {
	if a.isCallback() && a.MessageID != 0 {
		ref := chat.MessageRef{ChatID: a.ChatID, MessageID: a.MessageID}
		if err := deps.Messenger.EditText(ctx, ref, text, opts); err != nil {
			log.WarnContext(ctx, "Failed to edit message", "error", err, "chat_id", a.ChatID, "message_id", a.MessageID)
		}
		return
	}
	reply(ctx, deps, log, a.ChatID, text, opts)
}

func fail(ctx context.Context, deps HandlerDeps, log *slog.Logger, chatID int64) {
	reply(ctx, deps, log, chatID, deps.Config.Messages.GeneralError, chat.SendOptions{SupportButton: true})
}

// loadProfile refreshes the sender's profile and reports failures to the user.
func loadProfile(ctx context.Context, b *tgbot.Bot, deps HandlerDeps, log *slog.Logger, a actor) (*database.UserProfile, bool) {
	p, err := deps.Profiles.Load(ctx, a.identity())
	if err != nil {
		log.ErrorContext(ctx, "Failed to load user profile", "error", err, "user_id", a.UserID)
		answer(ctx, b, log, a.CallbackID, "", false)
		fail(ctx, deps, log, a.ChatID)
		return nil, false
	}
	return p, true
}

func subscribed(deps HandlerDeps, p *database.UserProfile) bool {
	return p.IsSubscribed || deps.Config.IsAdmin(p.UserID)
}

func subscriptionStatus(msgs config.MessagesConfig, p *database.UserProfile) string {
	switch {
	case !p.IsSubscribed:
		return msgs.SubscriptionNone
	case !p.SubscriptionEnd.Valid:
		return msgs.SubscriptionForever
	default:
		return fmt.Sprintf(msgs.SubscriptionUntil, p.SubscriptionEnd.Time.Format(dateFormat))
	}
}

func withKeyboard(opts chat.SendOptions, kb chat.Keyboard) chat.SendOptions {
	opts.Keyboard = kb
	return opts
}

func subscriptionEnd(forever string, end sql.NullTime) string {
	if !end.Valid {
		return forever
	}
	return end.Time.Format(dateFormat)
}
