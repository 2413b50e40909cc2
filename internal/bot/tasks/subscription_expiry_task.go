package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const sweepTimeout = 5 * time.Minute

// newSubscriptionExpiryTask sends renewal invoices to active users whose
// subscription ends tomorrow.
func newSubscriptionExpiryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", SubscriptionExpiryTask)

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled subscription expiry sweep...")
		startTime := time.Now()

		timeoutCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
		defer cancel()

		report, err := deps.Subscriptions.Sweep(timeoutCtx, deps.now())
		duration := time.Since(startTime)

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.WarnContext(ctx, "Subscription sweep timed out", "duration", duration, "prompted", report.Prompted)
				return fmt.Errorf("subscription sweep timed out after %s", sweepTimeout)
			}
			log.ErrorContext(ctx, "Subscription sweep failed", "error", err, "duration", duration)
			return fmt.Errorf("subscription sweep failed: %w", err)
		}

		log.InfoContext(ctx, "Subscription expiry sweep completed",
			"duration", duration,
			"candidates", report.Candidates,
			"prompted", report.Prompted,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
		return nil
	}
}
