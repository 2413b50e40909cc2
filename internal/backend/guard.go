package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/edgard/personabot/internal/presets"
)

var errFailedOutcome = errors.New("backend call failed")

// GuardConfig configures the timeout and circuit breaker around an adapter.
type GuardConfig struct {
	Name        string
	Timeout     time.Duration
	MaxFailures uint32
	Cooldown    time.Duration
}

// Guard bounds every call with a timeout and trips a circuit breaker after
// consecutive provider failures. Rate limits and content-policy rejections are
// answers, not failures, and never trip the breaker.
type Guard struct {
	inner   Adapter
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	log     *slog.Logger
}

// NewGuard wraps inner.
func NewGuard(inner Adapter, cfg GuardConfig, logger *slog.Logger) *Guard {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}

	log := logger.With("component", "backend_guard", "backend", cfg.Name)
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("Circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}

	return &Guard{
		inner:   inner,
		timeout: cfg.Timeout,
		cb:      gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}
}

func (g *Guard) Capability() presets.Capability { return g.inner.Capability() }

// State returns the breaker state, for diagnostics.
func (g *Guard) State() gobreaker.State { return g.cb.State() }

func (g *Guard) Invoke(ctx context.Context, req Request) Result {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var result Result
	_, err := g.cb.Execute(func() (interface{}, error) {
		result = g.inner.Invoke(callCtx, req)
		if result.Outcome == Success && callCtx.Err() != nil {
			result = failure(Unavailable, callCtx.Err().Error())
		}
		if result.Outcome == ProviderError || result.Outcome == Unavailable {
			return nil, fmt.Errorf("%w: %s", errFailedOutcome, result.Outcome)
		}
		return nil, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		g.log.WarnContext(ctx, "Circuit open, rejecting call", "model", req.ModelKey)
		return failure(Unavailable, err.Error())
	default:
		return result
	}
}
