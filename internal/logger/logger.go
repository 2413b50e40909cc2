// Package logger builds the application slog logger and the Telegram update logging middleware.
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewLogger creates a slog Logger with the given level writing text or JSON to stdout,
// and installs it as the default logger.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Err wraps an error as a slog attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Middleware logs every incoming update and how long its handler took.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()
			logEntry := log.With(UpdateAttrs(update)...)

			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.InfoContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

// UpdateAttrs extracts loggable fields from an update.
func UpdateAttrs(update *models.Update) []any {
	attrs := []any{"update_id", update.ID}

	switch {
	case update.Message != nil:
		msg := update.Message
		attrs = append(attrs, "update_type", "message", "message_id", msg.ID, "chat_id", msg.Chat.ID)
		if msg.From != nil {
			attrs = append(attrs, "user_id", msg.From.ID)
		}
		switch {
		case msg.Voice != nil:
			attrs = append(attrs, "voice_duration", msg.Voice.Duration)
		case msg.SuccessfulPayment != nil:
			attrs = append(attrs, "payment_amount", msg.SuccessfulPayment.TotalAmount)
		default:
			attrs = append(attrs, "text_preview", truncateString(msg.Text, 50))
		}
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		attrs = append(attrs, "update_type", "callback_query", "callback_query_id", cq.ID,
			"user_id", cq.From.ID, "data", cq.Data)
		if cq.Message.Message != nil {
			attrs = append(attrs, "chat_id", cq.Message.Message.Chat.ID, "message_accessible", true)
		} else if cq.Message.InaccessibleMessage != nil {
			attrs = append(attrs, "chat_id", cq.Message.InaccessibleMessage.Chat.ID, "message_accessible", false)
		}
	case update.PreCheckoutQuery != nil:
		attrs = append(attrs, "update_type", "pre_checkout_query", "user_id", update.PreCheckoutQuery.From.ID)
	default:
		attrs = append(attrs, "update_type", "other")
	}

	return attrs
}

func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}
