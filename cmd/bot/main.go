// Package main contains the entrypoint for the Telegram bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/edgard/personabot/internal/backend"
	"github.com/edgard/personabot/internal/bot"
	"github.com/edgard/personabot/internal/bot/handlers"
	"github.com/edgard/personabot/internal/bot/tasks"
	"github.com/edgard/personabot/internal/broadcast"
	"github.com/edgard/personabot/internal/config"
	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/dialog"
	"github.com/edgard/personabot/internal/entitlement"
	"github.com/edgard/personabot/internal/logger"
	"github.com/edgard/personabot/internal/metrics"
	"github.com/edgard/personabot/internal/orchestrator"
	"github.com/edgard/personabot/internal/presets"
	"github.com/edgard/personabot/internal/profile"
	"github.com/edgard/personabot/internal/session"
	"github.com/edgard/personabot/internal/subscription"
	"github.com/edgard/personabot/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components, handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	registry := presets.Default().WithDefaults(cfg.Quota.DefaultModel, cfg.Quota.DefaultPersona)
	profiles := profile.NewManager(store, registry, cfg.Telegram.AdminIDs, log)
	gate := entitlement.NewGate(store, registry, cfg.Quota, cfg.IsAdmin, entitlement.Messages{
		LimitExhausted: cfg.Messages.LimitExhausted,
		UsageDenied:    cfg.Messages.UsageDenied,
	}, log)

	backends, err := backend.Build(ctx, cfg, registry, log)
	if err != nil {
		log.Error("Failed to build AI backends", "error", err)
		return 1
	}
	log.Info("AI backends ready", "models", backends.Keys())

	guard, closeGuard, err := newGuard(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize in-flight guard", "error", err)
		return 1
	}
	defer closeGuard()

	// The default handler needs the messenger, which needs the bot.
	var fallback tgbot.HandlerFunc
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithWorkers(cfg.Telegram.Workers),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if fallback != nil {
				fallback(ctx, b, update)
			}
		}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	if cfg.Telegram.DropPendingUpdates {
		if _, err := tg.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			log.Warn("Failed to drop pending updates", "error", err)
		}
	}

	messenger := telegram.NewMessenger(tg, cfg.Telegram.SupportURL, cfg.Messages.SupportButton, log)
	subscriptions := subscription.NewService(store, messenger, cfg.Subscription, log, subscription.WithMetrics(m))

	orch := orchestrator.New(orchestrator.Deps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Profiles:  profiles,
		Gate:      gate,
		Builder:   dialog.NewBuilder(store, registry, cfg.Quota.ContextTokens, log),
		Backends:  backends,
		Guard:     guard,
		Messenger: messenger,
		Files:     messenger,
		Renewals:  subscriptions,
		Metrics:   m,
	})

	hDeps := handlers.HandlerDeps{
		Logger:        log,
		Config:        cfg,
		Store:         store,
		Profiles:      profiles,
		Orchestrator:  orch,
		Subscriptions: subscriptions,
		Broadcaster:   broadcast.New(messenger, cfg.Broadcast.Rate, cfg.Broadcast.Burst, m, log),
		States:        session.NewStates(),
		Messenger:     messenger,
		Backends:      backends,
	}
	fallback = handlers.NewDefaultHandler(hDeps)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.SetCommands(ctx, tg, handlers.Commands()); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	tDeps := tasks.TaskDeps{
		Logger:        log,
		Store:         store,
		Subscriptions: subscriptions,
		Config:        cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, reg, store.Ping)
	}

	app := bot.NewBot(log, tg, sched, metricsServer, orch.Reaper())

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}

// newGuard returns the Redis-backed in-flight guard when redis.addr is set and
// the in-memory one otherwise.
func newGuard(ctx context.Context, cfg *config.Config, log *slog.Logger) (session.Guard, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Info("Using in-memory in-flight guard")
		return session.NewMemoryGuard(), func() {}, nil
	}

	client, err := session.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Using Redis in-flight guard", "addr", cfg.Redis.Addr)

	closeClient := func() {
		if err := client.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}
	return session.NewRedisGuard(client, cfg.Redis.LockTTL, log), closeClient, nil
}
