package handlers

import (
	"log/slog"

	"github.com/edgard/personabot/internal/backend"
	"github.com/edgard/personabot/internal/broadcast"
	"github.com/edgard/personabot/internal/chat"
	"github.com/edgard/personabot/internal/config"
	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/orchestrator"
	"github.com/edgard/personabot/internal/profile"
	"github.com/edgard/personabot/internal/session"
	"github.com/edgard/personabot/internal/subscription"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger        *slog.Logger
	Config        *config.Config
	Store         database.Store
	Profiles      *profile.Manager
	Orchestrator  *orchestrator.Orchestrator
	Subscriptions *subscription.Service
	Broadcaster   *broadcast.Broadcaster
	States        *session.States
	Messenger     chat.Messenger
	Backends      *backend.Table
}
