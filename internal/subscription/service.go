// Package subscription activates paid subscriptions, applies admin grants and
// revocations, and sends renewal invoices before a subscription ends.
package subscription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/personabot/internal/chat"
	"github.com/edgard/personabot/internal/config"
	"github.com/edgard/personabot/internal/database"
	apperrors "github.com/edgard/personabot/internal/errors"
	"github.com/edgard/personabot/internal/metrics"
)

const payloadPrefix = "sub_"

// Service owns every subscription state change outside of profile loading.
type Service struct {
	store    database.Store
	invoices chat.InvoiceSender
	cfg      config.SubscriptionConfig
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records renewal prompt results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a subscription Service.
func NewService(store database.Store, invoices chat.InvoiceSender, cfg config.SubscriptionConfig, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		store:    store,
		invoices: invoices,
		cfg:      cfg,
		log:      logger.With("component", "subscription"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Days is the length of a paid or granted subscription.
func (s *Service) Days() int { return s.cfg.Days }

func (s *Service) period(now time.Time) (time.Time, time.Time) {
	return now, now.AddDate(0, 0, s.cfg.Days)
}

// ActivateFromPayment subscribes the user for the configured period starting now
// and returns the new end.
func (s *Service) ActivateFromPayment(ctx context.Context, userID int64, amount int) (time.Time, error) {
	if amount <= 0 {
		return time.Time{}, apperrors.NewValidationError("payment amount must be positive", nil)
	}
	if amount != s.cfg.Price {
		s.log.WarnContext(ctx, "Payment amount differs from subscription price", "user_id", userID, "amount", amount, "price", s.cfg.Price)
	}

	start, end := s.period(s.now())
	if err := s.store.ActivateSubscription(ctx, userID, start, &end); err != nil {
		return time.Time{}, fmt.Errorf("failed to activate subscription: %w", err)
	}

	s.log.InfoContext(ctx, "Subscription activated from payment", "user_id", userID, "amount", amount, "end", end)
	return end, nil
}

// Invoice builds the Telegram Stars invoice for userID.
func (s *Service) Invoice(userID int64) chat.Invoice {
	return chat.Invoice{
		Title:       s.cfg.Title,
		Description: s.cfg.Description,
		Payload:     fmt.Sprintf("%s%d_%s", payloadPrefix, userID, uuid.NewString()),
		Currency:    s.cfg.Currency,
		Label:       s.cfg.Label,
		Amount:      s.cfg.Price,
	}
}

// SendInvoice delivers a fresh invoice to chatID on behalf of userID.
func (s *Service) SendInvoice(ctx context.Context, chatID, userID int64) error {
	if _, err := s.invoices.SendInvoice(ctx, chatID, s.Invoice(userID)); err != nil {
		return fmt.Errorf("failed to send invoice: %w", err)
	}
	return nil
}

// ParsePayload extracts the user id from an invoice payload.
func ParsePayload(payload string) (int64, bool) {
	rest, ok := strings.CutPrefix(payload, payloadPrefix)
	if !ok {
		return 0, false
	}
	idPart, _, ok := strings.Cut(rest, "_")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// TargetsResult lists which admin targets were applied and which could not be resolved.
type TargetsResult struct {
	Applied  []string
	NotFound []string
}

// Grant subscribes every target in input for the configured period. Input is a
// comma-separated list of numeric ids or @usernames.
func (s *Service) Grant(ctx context.Context, input string) (TargetsResult, error) {
	start, end := s.period(s.now())
	return s.applyTargets(ctx, input, func(ctx context.Context, userID int64) error {
		return s.store.ActivateSubscription(ctx, userID, start, &end)
	})
}

// Revoke unsubscribes every target in input.
func (s *Service) Revoke(ctx context.Context, input string) (TargetsResult, error) {
	return s.applyTargets(ctx, input, s.store.DeactivateSubscription)
}

func (s *Service) applyTargets(ctx context.Context, input string, apply func(context.Context, int64) error) (TargetsResult, error) {
	targets := ParseTargets(input)
	if len(targets) == 0 {
		return TargetsResult{}, apperrors.NewValidationError("no user ids or usernames given", nil)
	}

	var result TargetsResult
	for _, target := range targets {
		profile, err := s.resolve(ctx, target)
		if err != nil {
			return result, err
		}
		if profile == nil {
			result.NotFound = append(result.NotFound, target)
			continue
		}

		if err := apply(ctx, profile.UserID); err != nil {
			return result, fmt.Errorf("failed to update subscription of %d: %w", profile.UserID, err)
		}

		name := profile.DisplayName()
		if name == "" {
			name = strconv.FormatInt(profile.UserID, 10)
		}
		result.Applied = append(result.Applied, name)
	}

	s.log.InfoContext(ctx, "Applied admin subscription change", "applied", len(result.Applied), "not_found", len(result.NotFound))
	return result, nil
}

func (s *Service) resolve(ctx context.Context, target string) (*database.UserProfile, error) {
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		p, err := s.store.GetUserProfile(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to look up user %d: %w", id, err)
		}
		return p, nil
	}

	p, err := s.store.FindUserByUsername(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", target, err)
	}
	return p, nil
}

// ParseTargets splits comma-separated ids and usernames, dropping blanks and duplicates.
func ParseTargets(input string) []string {
	var targets []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "@" {
			continue
		}
		key := strings.ToLower(part)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		targets = append(targets, part)
	}
	return targets
}
