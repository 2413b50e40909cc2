package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the persistence operations for profiles, counters and history.
// Every mutation is a single statement or a single transaction so concurrent
// requests never lose updates.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	// UpsertUserProfile creates the profile if missing and refreshes names and last-seen.
	// It reports whether the profile was created.
	UpsertUserProfile(ctx context.Context, identity UserIdentity, defaults ProfileDefaults, now time.Time) (bool, error)

	// GetUserProfile returns nil, nil if the profile does not exist.
	GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error)

	// FindUserByUsername looks a profile up by handle (without '@'). Returns nil, nil if not found.
	FindUserByUsername(ctx context.Context, username string) (*UserProfile, error)

	// ListUserProfiles returns all profiles ordered by registration.
	ListUserProfiles(ctx context.Context) ([]UserProfile, error)

	// ListExpiringSubscriptions returns subscribed profiles that have an end date.
	ListExpiringSubscriptions(ctx context.Context) ([]UserProfile, error)

	SetModel(ctx context.Context, userID int64, modelKey string) error
	SetPersona(ctx context.Context, userID int64, personaKey string) error

	// SetCustomPrompt stores the prompt and switches the persona to personaKey.
	SetCustomPrompt(ctx context.Context, userID int64, personaKey, prompt string) error

	SetVoicePreferences(ctx context.Context, userID int64, voiceInput, voiceReply bool) error

	// ActivateSubscription marks the user subscribed. A nil end means no expiry.
	ActivateSubscription(ctx context.Context, userID int64, start time.Time, end *time.Time) error

	DeactivateSubscription(ctx context.Context, userID int64) error

	// ExpireSubscription unsubscribes the user if the subscription ended before cutoff.
	// It reports whether the row changed.
	ExpireSubscription(ctx context.Context, userID int64, cutoff time.Time) (bool, error)

	// CoerceFreeTier resets the selection of an unsubscribed user. It reports whether the row changed.
	CoerceFreeTier(ctx context.Context, userID int64, modelKey, personaKey string) (bool, error)

	// MarkRenewalPrompted claims the renewal prompt for endDate. It returns false if
	// it was already claimed.
	MarkRenewalPrompted(ctx context.Context, userID int64, endDate string) (bool, error)

	// RollOverUsageMonth switches the counters to month and clears them, once per month.
	// It reports whether a rollover happened.
	RollOverUsageMonth(ctx context.Context, userID int64, month string) (bool, error)

	// IncrementUsageIfBelow atomically increments the counter when it is below limit.
	// It reports whether the increment happened.
	IncrementUsageIfBelow(ctx context.Context, userID int64, quotaKey string, limit int) (bool, error)

	GetUsageCounts(ctx context.Context, userID int64) (map[string]int, error)

	IncrementMonthlyUsage(ctx context.Context, userID int64, modelKey string) error
	GetMonthlyUsage(ctx context.Context, userID int64) (map[string]int, error)

	SaveHistory(ctx context.Context, entry *HistoryEntry) error

	// GetRecentHistory returns up to limit most recent entries, oldest first.
	GetRecentHistory(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error)

	// GetHistoryPage returns entries newest first.
	GetHistoryPage(ctx context.Context, userID int64, offset, limit int) ([]HistoryEntry, error)

	CountHistory(ctx context.Context, userID int64) (int, error)

	// ClearHistory deletes every history entry of a user and returns how many were removed.
	ClearHistory(ctx context.Context, userID int64) (int64, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *sqlxStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "op", op, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "op", op, "error", rollbackErr)
				}
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "op", op, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	return nil
}

// execAffected runs a single statement and returns the number of affected rows.
func (s *sqlxStore) execAffected(ctx context.Context, op string, query string, args ...any) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "Context timeout or cancellation during statement", "op", op, "error", err)
			return 0, err
		}
		s.logger.ErrorContext(ctx, "Statement failed", "op", op, "error", err)
		return 0, fmt.Errorf("failed to %s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows for %s: %w", op, err)
	}
	return affected, nil
}

// dbTime normalizes timestamps so stored values compare correctly as text.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
