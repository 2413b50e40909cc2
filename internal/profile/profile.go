// Package profile loads user profiles and applies the lifecycle rules on every
// load: admin override, subscription expiry, free-tier coercion and monthly
// counter rollover.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/presets"
)

// Identity is the platform identity of the user being loaded.
type Identity = database.UserIdentity

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

// Manager applies lifecycle rules on top of the Store.
type Manager struct {
	store    database.Store
	registry *presets.Registry
	admins   []int64
	now      func() time.Time
	log      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager. Admin ids get a permanent subscription on load.
func NewManager(store database.Store, registry *presets.Registry, adminIDs []int64, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		registry: registry,
		admins:   slices.Clone(adminIDs),
		now:      time.Now,
		log:      logger.With("component", "profile_manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Now() time.Time { return m.now() }

func (m *Manager) IsAdmin(userID int64) bool {
	return slices.Contains(m.admins, userID)
}

// Registry returns the preset registry used for coercion.
func (m *Manager) Registry() *presets.Registry { return m.registry }

// Load ensures the profile exists and returns it after the lifecycle rules ran.
func (m *Manager) Load(ctx context.Context, id Identity) (*database.UserProfile, error) {
	now := m.now()
	month := MonthKey(now)

	defaults := database.ProfileDefaults{
		ModelKey:   m.registry.DefaultModel().Key,
		PersonaKey: m.registry.DefaultPersona().Key,
		UsageMonth: month,
	}
	if _, err := m.store.UpsertUserProfile(ctx, id, defaults, now); err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	p, err := m.store.GetUserProfile(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("profile %d missing after upsert", id.UserID)
	}

	changed, err := m.apply(ctx, p, now, month)
	if err != nil {
		return nil, err
	}
	if !changed {
		return p, nil
	}

	p, err = m.store.GetUserProfile(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read profile: %w", err)
	}
	return p, nil
}

func (m *Manager) apply(ctx context.Context, p *database.UserProfile, now time.Time, month string) (bool, error) {
	var changed bool

	if m.IsAdmin(p.UserID) {
		if !p.HasNoExpiry() {
			if err := m.store.ActivateSubscription(ctx, p.UserID, now, nil); err != nil {
				return false, fmt.Errorf("failed to apply admin subscription: %w", err)
			}
			m.log.InfoContext(ctx, "Admin profile granted permanent subscription", "user_id", p.UserID)
			p.IsSubscribed = true
			changed = true
		}
	} else if p.IsSubscribed && p.SubscriptionEnd.Valid {
		expired, err := m.store.ExpireSubscription(ctx, p.UserID, StartOfTomorrow(now))
		if err != nil {
			return false, fmt.Errorf("failed to expire subscription: %w", err)
		}
		if expired {
			m.log.InfoContext(ctx, "Subscription ended", "user_id", p.UserID, "end", p.SubscriptionEnd.Time)
			p.IsSubscribed = false
			changed = true
		}
	}

	if !p.IsSubscribed {
		model, persona := m.FreeSelection(p.ModelKey, p.PersonaKey)
		coerced, err := m.store.CoerceFreeTier(ctx, p.UserID, model, persona)
		if err != nil {
			return false, fmt.Errorf("failed to coerce free tier: %w", err)
		}
		if coerced {
			m.log.DebugContext(ctx, "Selection coerced to free tier", "user_id", p.UserID, "model", model, "persona", persona)
			changed = true
		}
	}

	if p.UsageMonth != month {
		rolled, err := m.store.RollOverUsageMonth(ctx, p.UserID, month)
		if err != nil {
			return false, fmt.Errorf("failed to roll over usage month: %w", err)
		}
		changed = changed || rolled
	}

	return changed, nil
}

// FreeSelection maps a selection to what an unsubscribed user may keep: free
// presets stay, anything else falls back to the registry defaults.
func (m *Manager) FreeSelection(modelKey, personaKey string) (string, string) {
	model, ok := m.registry.Model(modelKey)
	if !ok || !model.Free {
		model = m.registry.DefaultModel()
	}
	persona, ok := m.registry.Persona(personaKey)
	if !ok || !persona.Free {
		persona = m.registry.DefaultPersona()
	}
	return model.Key, persona.Key
}

// MonthKey returns the usage-month marker for t.
func MonthKey(t time.Time) string { return t.Format(monthLayout) }

// DateKey returns the calendar date of t as YYYY-MM-DD.
func DateKey(t time.Time) string { return t.Format(dateLayout) }

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// StartOfTomorrow returns midnight after t. Subscriptions ending before it have
// an end date on or before today.
func StartOfTomorrow(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}
