package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func (s *sqlxStore) RollOverUsageMonth(ctx context.Context, userID int64, month string) (bool, error) {
	if month == "" {
		return false, fmt.Errorf("usage month cannot be empty")
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	var rolled bool
	err := s.withTx(ctx, "roll over usage month", func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE user_profiles SET usage_month = ? WHERE user_id = ? AND usage_month <> ?`,
			month, userID, month)
		if err != nil {
			return fmt.Errorf("failed to update usage month for user %d: %w", userID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM request_counters WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to reset request counters for user %d: %w", userID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM monthly_usage WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to reset monthly usage for user %d: %w", userID, err)
		}
		rolled = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if rolled {
		s.logger.InfoContext(ctx, "Usage counters rolled over", "user_id", userID, "month", month)
	}
	return rolled, nil
}

// IncrementUsageIfBelow increments the counter in one statement. The conflict
// branch only fires while count < limit, so concurrent callers cannot overshoot.
func (s *sqlxStore) IncrementUsageIfBelow(ctx context.Context, userID int64, quotaKey string, limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	affected, err := s.execAffected(ctx, "increment usage counter", `
		INSERT INTO request_counters (user_id, quota_key, count)
		VALUES (?, ?, 1)
		ON CONFLICT (user_id, quota_key) DO UPDATE SET count = count + 1
		WHERE request_counters.count < ?`, userID, quotaKey, limit)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *sqlxStore) GetUsageCounts(ctx context.Context, userID int64) (map[string]int, error) {
	return s.selectCounts(ctx, "get usage counts",
		`SELECT quota_key AS counter_key, count FROM request_counters WHERE user_id = ? ORDER BY quota_key`, userID)
}

func (s *sqlxStore) IncrementMonthlyUsage(ctx context.Context, userID int64, modelKey string) error {
	_, err := s.execAffected(ctx, "increment monthly usage", `
		INSERT INTO monthly_usage (user_id, model_key, count)
		VALUES (?, ?, 1)
		ON CONFLICT (user_id, model_key) DO UPDATE SET count = count + 1`, userID, modelKey)
	return err
}

func (s *sqlxStore) GetMonthlyUsage(ctx context.Context, userID int64) (map[string]int, error) {
	return s.selectCounts(ctx, "get monthly usage",
		`SELECT model_key AS counter_key, count FROM monthly_usage WHERE user_id = ? ORDER BY model_key`, userID)
}

func (s *sqlxStore) selectCounts(ctx context.Context, op, query string, userID int64) (map[string]int, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var rows []UsageCount
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		s.logger.ErrorContext(ctx, "Counter query failed", "op", op, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Key] = row.Count
	}
	return counts, nil
}
