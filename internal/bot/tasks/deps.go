// Package tasks implements the scheduled jobs of the bot.
package tasks

import (
	"log/slog"
	"time"

	"github.com/edgard/personabot/internal/config"
	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/subscription"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger        *slog.Logger
	Store         database.Store
	Subscriptions *subscription.Service
	Config        *config.Config
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
