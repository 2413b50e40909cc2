// Package entitlement decides whether a user may send a request to a model.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edgard/personabot/internal/config"
	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/presets"
)

// Decision is the gate verdict. Reason is user-facing and empty when allowed.
type Decision struct {
	Allowed bool
	Reason  string
}

// Messages holds the denial templates. LimitExhausted takes the model display name.
type Messages struct {
	LimitExhausted string
	UsageDenied    string
}

// Gate enforces the free-tier quota. Subscribers and admins pass untouched;
// everyone else consumes one unit of the model's quota key per request.
type Gate struct {
	store    database.Store
	registry *presets.Registry
	quota    config.QuotaConfig
	isAdmin  func(int64) bool
	messages Messages
	log      *slog.Logger
}

// NewGate creates a Gate. A nil isAdmin treats every user as a regular user.
func NewGate(store database.Store, registry *presets.Registry, quota config.QuotaConfig, isAdmin func(int64) bool, messages Messages, logger *slog.Logger) *Gate {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &Gate{
		store:    store,
		registry: registry,
		quota:    quota,
		isAdmin:  isAdmin,
		messages: messages,
		log:      logger.With("component", "entitlement_gate"),
	}
}

// CheckUsage reads the profile fresh and either admits the request or returns
// the denial reason. The counter increment is the only mutation.
func (g *Gate) CheckUsage(ctx context.Context, userID int64, modelKey string) (Decision, error) {
	profile, err := g.store.GetUserProfile(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load profile for usage check: %w", err)
	}
	if profile == nil {
		return Decision{}, fmt.Errorf("profile %d not found for usage check", userID)
	}

	if g.isAdmin(userID) || profile.IsSubscribed {
		return Decision{Allowed: true}, nil
	}

	model, ok := g.registry.Model(modelKey)
	if !ok {
		g.log.WarnContext(ctx, "Usage check for unknown model", "user_id", userID, "model", modelKey)
		return Decision{Reason: g.messages.UsageDenied}, nil
	}

	quotaKey := g.quota.KeyFor(modelKey)
	limit := g.quota.LimitFor(modelKey)

	allowed, err := g.store.IncrementUsageIfBelow(ctx, userID, quotaKey, limit)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to increment usage counter: %w", err)
	}
	if !allowed {
		g.log.InfoContext(ctx, "Free-tier limit reached", "user_id", userID, "model", modelKey, "quota_key", quotaKey, "limit", limit)
		return Decision{Reason: fmt.Sprintf(g.messages.LimitExhausted, model.Name)}, nil
	}

	return Decision{Allowed: true}, nil
}
