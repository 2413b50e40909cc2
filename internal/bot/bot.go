// Package bot implements the bot lifecycle: the Telegram listener, the
// scheduler and the optional metrics server run together until shutdown.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/personabot/internal/metrics"
)

const flushTimeout = 15 * time.Second

// Flusher drains work that must finish before exit, such as pending notice deletions.
type Flusher interface {
	Flush(ctx context.Context) int
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger        *slog.Logger
	tgBot         *tgbot.Bot
	scheduler     *Scheduler
	metricsServer *http.Server
	reaper        Flusher
}

// NewBot wires the lifecycle. metricsServer and reaper are optional.
func NewBot(logger *slog.Logger, tgBot *tgbot.Bot, scheduler *Scheduler, metricsServer *http.Server, reaper Flusher) *Bot {
	return &Bot{
		logger:        logger.With("component", "bot_orchestrator"),
		tgBot:         tgBot,
		scheduler:     scheduler,
		metricsServer: metricsServer,
		reaper:        reaper,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")

		b.tgBot.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	if b.metricsServer != nil {
		g.Go(func() error {
			return metrics.Serve(gCtx, b.metricsServer, b.logger)
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	b.flush()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

func (b *Bot) flush() {
	if b.reaper == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if n := b.reaper.Flush(ctx); n > 0 {
		b.logger.Info("Flushed pending notice deletions", "count", n)
	}
}
