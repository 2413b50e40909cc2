// Package telegram connects the bot to the Telegram Bot API: client setup,
// handler registration and the Messenger used by the core.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/personabot/internal/bot/handlers"
)

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	prefix := token
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	log.Info("Telegram bot instance created successfully", "token_prefix", prefix+"...")
	return b, nil
}

// applyMiddleware wraps a handler function with a slice of middleware.
// Middleware are applied in reverse order so the first one in the slice is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers registers the routing table with the bot in table order.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, routes []handlers.RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(routes) == 0 {
		log.Warn("No handlers provided for registration.")
		return nil
	}

	registered := 0
	for _, route := range routes {
		if route.Handler == nil {
			log.Warn("Skipping registration for nil handler", "pattern", route.Pattern)
			continue
		}

		handler := applyMiddleware(route.Handler, route.Middleware)
		if route.Match != nil {
			b.RegisterHandlerMatchFunc(route.Match, handler)
			log.Debug("Registered match handler", "middleware_count", len(route.Middleware))
		} else {
			b.RegisterHandler(route.HandlerType, route.Pattern, route.MatchType, handler)
			log.Debug("Registered handler", "pattern", route.Pattern, "match_type", route.MatchType, "middleware_count", len(route.Middleware))
		}
		registered++
	}

	log.Info("Registered Telegram handlers successfully", "count", registered)
	return nil
}

// SetCommands publishes the command menu shown by Telegram clients.
func SetCommands(ctx context.Context, b *bot.Bot, commands []handlers.Command) error {
	botCommands := make([]models.BotCommand, 0, len(commands))
	for _, c := range commands {
		botCommands = append(botCommands, models.BotCommand{Command: c.Name, Description: c.Description})
	}

	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: botCommands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}
