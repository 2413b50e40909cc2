package database

import (
	"database/sql"
	"time"
)

// UserProfile is the persistent per-user record. A subscribed profile with a NULL
// SubscriptionEnd has no expiry (admin-granted permanent access).
type UserProfile struct {
	UserID       int64     `db:"user_id"`
	FirstName    string    `db:"first_name"`
	Username     string    `db:"username"`
	RegisteredAt time.Time `db:"registered_at"`
	LastSeenAt   time.Time `db:"last_seen_at"`

	IsSubscribed      bool         `db:"is_subscribed"`
	SubscriptionStart sql.NullTime `db:"subscription_start"`
	SubscriptionEnd   sql.NullTime `db:"subscription_end"`

	ModelKey     string `db:"model_key"`
	PersonaKey   string `db:"persona_key"`
	CustomPrompt string `db:"custom_prompt"`

	// UsageMonth is the "YYYY-MM" month the request counters belong to.
	UsageMonth string `db:"usage_month"`

	VoiceInput bool `db:"voice_input"`
	VoiceReply bool `db:"voice_reply"`

	// RenewalPromptedFor is the subscription end date ("YYYY-MM-DD") a renewal
	// invoice was last sent for.
	RenewalPromptedFor string `db:"renewal_prompted_for"`
}

// DisplayName returns the best human-readable name for the profile.
func (p *UserProfile) DisplayName() string {
	switch {
	case p.Username != "":
		return "@" + p.Username
	case p.FirstName != "":
		return p.FirstName
	default:
		return ""
	}
}

// HasNoExpiry reports whether the profile holds a permanent subscription.
func (p *UserProfile) HasNoExpiry() bool {
	return p.IsSubscribed && !p.SubscriptionEnd.Valid
}

// HistoryEntry is one stored query/response exchange.
type HistoryEntry struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ModelKey  string    `db:"model_key"`
	Query     string    `db:"query"`
	Response  string    `db:"response"`
	CreatedAt time.Time `db:"created_at"`
}

// UserIdentity carries the platform identity used to create or refresh a profile.
type UserIdentity struct {
	UserID    int64
	FirstName string
	Username  string
}

// ProfileDefaults are the selections assigned to a freshly created profile.
type ProfileDefaults struct {
	ModelKey   string
	PersonaKey string
	UsageMonth string
}

// UsageCount is one counter row.
type UsageCount struct {
	Key   string `db:"counter_key"`
	Count int    `db:"count"`
}
