package database

import (
	"context"
	"fmt"
	"slices"
	"time"
)

func (s *sqlxStore) SaveHistory(ctx context.Context, entry *HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("history entry cannot be nil")
	}
	if entry.UserID == 0 {
		return fmt.Errorf("history entry user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = dbTime(entry.CreatedAt)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO history (user_id, model_key, query, response, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.UserID, entry.ModelKey, entry.Query, entry.Response, entry.CreatedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save history entry", "user_id", entry.UserID, "error", err)
		return fmt.Errorf("failed to save history entry: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

func (s *sqlxStore) GetRecentHistory(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	entries, err := s.GetHistoryPage(ctx, userID, 0, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(entries)
	return entries, nil
}

func (s *sqlxStore) GetHistoryPage(ctx context.Context, userID int64, offset, limit int) ([]HistoryEntry, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if offset < 0 {
		offset = 0
	}

	var entries []HistoryEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, model_key, query, response, created_at
		FROM history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read history", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to read history for user %d: %w", userID, err)
	}
	return entries, nil
}

func (s *sqlxStore) CountHistory(ctx context.Context, userID int64) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM history WHERE user_id = ?`, userID); err != nil {
		return 0, fmt.Errorf("failed to count history for user %d: %w", userID, err)
	}
	return count, nil
}

func (s *sqlxStore) ClearHistory(ctx context.Context, userID int64) (int64, error) {
	deleted, err := s.execAffected(ctx, "clear history", `DELETE FROM history WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "History cleared", "user_id", userID, "deleted", deleted)
	return deleted, nil
}
