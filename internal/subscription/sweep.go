package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/profile"
)

// activityWindow is how recently a user must have been seen to get a renewal prompt.
const activityWindow = 24 * time.Hour

// SweepReport summarizes one renewal sweep.
type SweepReport struct {
	Candidates int
	Prompted   int
	Skipped    int
	Failed     int
}

// Sweep sends a renewal invoice to every active subscriber whose subscription
// ends tomorrow. Delivery failures are counted and never abort the batch.
func (s *Service) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	profiles, err := s.store.ListExpiringSubscriptions(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}

	var report SweepReport
	for i := range profiles {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		p := &profiles[i]
		if !endsTomorrow(p, now) {
			continue
		}
		report.Candidates++

		prompted, err := s.prompt(ctx, p, now)
		switch {
		case err != nil:
			report.Failed++
			s.log.WarnContext(ctx, "Failed to send renewal prompt", "user_id", p.UserID, "error", err)
		case prompted:
			report.Prompted++
		default:
			report.Skipped++
		}
	}

	s.log.InfoContext(ctx, "Renewal sweep finished",
		"candidates", report.Candidates,
		"prompted", report.Prompted,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

// CheckUser applies the sweep rule to one user. It reports whether an invoice was sent.
func (s *Service) CheckUser(ctx context.Context, userID int64, now time.Time) (bool, error) {
	p, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load profile for renewal check: %w", err)
	}
	if p == nil || !p.IsSubscribed || !endsTomorrow(p, now) {
		return false, nil
	}
	return s.prompt(ctx, p, now)
}

func (s *Service) prompt(ctx context.Context, p *database.UserProfile, now time.Time) (bool, error) {
	if now.Sub(p.LastSeenAt) > activityWindow {
		s.log.DebugContext(ctx, "Skipping renewal prompt for inactive user", "user_id", p.UserID, "last_seen", p.LastSeenAt)
		return false, nil
	}

	endDate := profile.DateKey(p.SubscriptionEnd.Time.In(now.Location()))
	claimed, err := s.store.MarkRenewalPrompted(ctx, p.UserID, endDate)
	if err != nil {
		return false, fmt.Errorf("failed to claim renewal prompt: %w", err)
	}
	if !claimed {
		return false, nil
	}

	if err := s.SendInvoice(ctx, p.UserID, p.UserID); err != nil {
		s.metrics.RenewalPrompt("failed")
		return false, err
	}

	s.metrics.RenewalPrompt("sent")
	s.log.InfoContext(ctx, "Renewal invoice sent", "user_id", p.UserID, "end_date", endDate)
	return true, nil
}

func endsTomorrow(p *database.UserProfile, now time.Time) bool {
	if !p.SubscriptionEnd.Valid {
		return false
	}
	end := p.SubscriptionEnd.Time.In(now.Location())
	return profile.DateKey(end) == profile.DateKey(now.AddDate(0, 0, 1))
}
