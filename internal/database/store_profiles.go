package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const profileColumns = `user_id, first_name, username, registered_at, last_seen_at,
	is_subscribed, subscription_start, subscription_end, model_key, persona_key,
	custom_prompt, usage_month, voice_input, voice_reply, renewal_prompted_for`

// UpsertUserProfile creates the profile if it does not exist yet and refreshes
// the identity fields and last-seen timestamp.
func (s *sqlxStore) UpsertUserProfile(ctx context.Context, identity UserIdentity, defaults ProfileDefaults, now time.Time) (bool, error) {
	if identity.UserID == 0 {
		return false, fmt.Errorf("user_id cannot be zero")
	}
	if defaults.ModelKey == "" || defaults.PersonaKey == "" {
		return false, fmt.Errorf("profile defaults must name a model and a persona")
	}

	now = dbTime(now)
	var created bool

	err := s.withTx(ctx, "upsert user profile", func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO user_profiles (user_id, first_name, username, registered_at, last_seen_at,
				model_key, persona_key, usage_month)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO NOTHING`,
			identity.UserID, identity.FirstName, identity.Username, now, now,
			defaults.ModelKey, defaults.PersonaKey, defaults.UsageMonth)
		if err != nil {
			return fmt.Errorf("failed to insert user profile %d: %w", identity.UserID, err)
		}

		if affected, err := result.RowsAffected(); err == nil && affected == 1 {
			created = true
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE user_profiles
			SET first_name = ?, username = ?, last_seen_at = ?
			WHERE user_id = ?`,
			identity.FirstName, identity.Username, now, identity.UserID)
		if err != nil {
			return fmt.Errorf("failed to refresh user profile %d: %w", identity.UserID, err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to upsert user profile", "user_id", identity.UserID, "error", err)
		return false, err
	}

	if created {
		s.logger.InfoContext(ctx, "Created user profile", "user_id", identity.UserID)
	}
	return created, nil
}

// GetUserProfile retrieves a user profile by user ID. Returns nil, nil if not found.
func (s *sqlxStore) GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	return s.getProfile(ctx, "user_id = ?", userID)
}

// FindUserByUsername matches the handle case-insensitively.
func (s *sqlxStore) FindUserByUsername(ctx context.Context, username string) (*UserProfile, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	return s.getProfile(ctx, "username = ? COLLATE NOCASE", username)
}

func (s *sqlxStore) getProfile(ctx context.Context, where string, arg any) (*UserProfile, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profile UserProfile
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE ` + where + ` LIMIT 1`

	err := s.db.GetContext(ctx, &profile, query, arg)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user profile found", "lookup", arg)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching user profile", "lookup", arg, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user profile", "lookup", arg, "error", err)
		return nil, fmt.Errorf("failed to get user profile %v: %w", arg, err)
	}

	return &profile, nil
}

func (s *sqlxStore) ListUserProfiles(ctx context.Context) ([]UserProfile, error) {
	return s.selectProfiles(ctx, `SELECT `+profileColumns+` FROM user_profiles ORDER BY registered_at, user_id`)
}

func (s *sqlxStore) ListExpiringSubscriptions(ctx context.Context) ([]UserProfile, error) {
	return s.selectProfiles(ctx, `SELECT `+profileColumns+` FROM user_profiles
		WHERE is_subscribed = 1 AND subscription_end IS NOT NULL
		ORDER BY subscription_end, user_id`)
}

func (s *sqlxStore) selectProfiles(ctx context.Context, query string) ([]UserProfile, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profiles []UserProfile
	if err := s.db.SelectContext(ctx, &profiles, query); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Error listing user profiles", "error", err)
		return nil, fmt.Errorf("failed to list user profiles: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed user profiles", "count", len(profiles))
	return profiles, nil
}

func (s *sqlxStore) SetModel(ctx context.Context, userID int64, modelKey string) error {
	return s.updateOne(ctx, "set model", `UPDATE user_profiles SET model_key = ? WHERE user_id = ?`, modelKey, userID)
}

func (s *sqlxStore) SetPersona(ctx context.Context, userID int64, personaKey string) error {
	return s.updateOne(ctx, "set persona", `UPDATE user_profiles SET persona_key = ? WHERE user_id = ?`, personaKey, userID)
}

func (s *sqlxStore) SetCustomPrompt(ctx context.Context, userID int64, personaKey, prompt string) error {
	return s.updateOne(ctx, "set custom prompt",
		`UPDATE user_profiles SET persona_key = ?, custom_prompt = ? WHERE user_id = ?`, personaKey, prompt, userID)
}

func (s *sqlxStore) SetVoicePreferences(ctx context.Context, userID int64, voiceInput, voiceReply bool) error {
	return s.updateOne(ctx, "set voice preferences",
		`UPDATE user_profiles SET voice_input = ?, voice_reply = ? WHERE user_id = ?`, voiceInput, voiceReply, userID)
}

func (s *sqlxStore) ActivateSubscription(ctx context.Context, userID int64, start time.Time, end *time.Time) error {
	var endValue sql.NullTime
	if end != nil {
		endValue = sql.NullTime{Time: dbTime(*end), Valid: true}
	}

	err := s.updateOne(ctx, "activate subscription", `
		UPDATE user_profiles
		SET is_subscribed = 1, subscription_start = ?, subscription_end = ?, renewal_prompted_for = ''
		WHERE user_id = ?`, dbTime(start), endValue, userID)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Subscription activated", "user_id", userID, "no_expiry", end == nil)
	return nil
}

func (s *sqlxStore) DeactivateSubscription(ctx context.Context, userID int64) error {
	err := s.updateOne(ctx, "deactivate subscription", `
		UPDATE user_profiles
		SET is_subscribed = 0, subscription_start = NULL, subscription_end = NULL
		WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Subscription deactivated", "user_id", userID)
	return nil
}

func (s *sqlxStore) ExpireSubscription(ctx context.Context, userID int64, cutoff time.Time) (bool, error) {
	affected, err := s.execAffected(ctx, "expire subscription", `
		UPDATE user_profiles
		SET is_subscribed = 0
		WHERE user_id = ? AND is_subscribed = 1
			AND subscription_end IS NOT NULL AND subscription_end < ?`, userID, dbTime(cutoff))
	if err != nil {
		return false, err
	}
	if affected > 0 {
		s.logger.InfoContext(ctx, "Subscription expired", "user_id", userID)
	}
	return affected > 0, nil
}

func (s *sqlxStore) CoerceFreeTier(ctx context.Context, userID int64, modelKey, personaKey string) (bool, error) {
	affected, err := s.execAffected(ctx, "coerce free tier", `
		UPDATE user_profiles
		SET model_key = ?, persona_key = ?, subscription_start = NULL, subscription_end = NULL
		WHERE user_id = ? AND is_subscribed = 0
			AND (model_key <> ? OR persona_key <> ? OR subscription_end IS NOT NULL)`,
		modelKey, personaKey, userID, modelKey, personaKey)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *sqlxStore) MarkRenewalPrompted(ctx context.Context, userID int64, endDate string) (bool, error) {
	affected, err := s.execAffected(ctx, "mark renewal prompted", `
		UPDATE user_profiles
		SET renewal_prompted_for = ?
		WHERE user_id = ? AND renewal_prompted_for <> ?`, endDate, userID, endDate)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// updateOne runs an UPDATE that must match the user's row.
func (s *sqlxStore) updateOne(ctx context.Context, op string, query string, args ...any) error {
	affected, err := s.execAffected(ctx, op, query, args...)
	if err != nil {
		return err
	}
	if affected == 0 {
		s.logger.WarnContext(ctx, "Update matched no profile", "op", op)
		return fmt.Errorf("failed to %s: %w", op, ErrProfileNotFound)
	}
	return nil
}

// ErrProfileNotFound is returned by updates addressed to a missing profile.
var ErrProfileNotFound = errors.New("user profile not found")
