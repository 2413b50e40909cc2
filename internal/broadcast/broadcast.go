// Package broadcast delivers one message to many users at a bounded rate.
package broadcast

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/edgard/personabot/internal/chat"
	"github.com/edgard/personabot/internal/metrics"
)

// Report is the aggregate outcome of a broadcast.
type Report struct {
	Sent   int
	Failed int
}

// Broadcaster throttles deliveries so a large audience stays under the
// platform's flood limits.
type Broadcaster struct {
	messenger chat.Messenger
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// New creates a Broadcaster sending at most perSecond messages with the given burst.
func New(messenger chat.Messenger, perSecond float64, burst int, m *metrics.Metrics, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if burst < 1 {
		burst = 1
	}
	return &Broadcaster{
		messenger: messenger,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
		metrics:   m,
		log:       logger.With("component", "broadcaster"),
	}
}

// Send delivers text to every recipient. A failed delivery is counted and the
// batch continues; only cancellation stops it early, and recipients not yet
// reached are counted as failed.
func (b *Broadcaster) Send(ctx context.Context, recipients []int64, text string, opts chat.SendOptions) Report {
	var report Report

	for i, chatID := range recipients {
		if err := b.limiter.Wait(ctx); err != nil {
			remaining := len(recipients) - i
			report.Failed += remaining
			b.log.WarnContext(ctx, "Broadcast interrupted", "remaining", remaining, "error", err)
			break
		}

		if _, err := b.messenger.SendText(ctx, chatID, text, opts); err != nil {
			report.Failed++
			b.metrics.BroadcastMessage("failed")
			b.log.DebugContext(ctx, "Broadcast delivery failed", "chat_id", chatID, "error", err)
			continue
		}
		report.Sent++
		b.metrics.BroadcastMessage("sent")
	}

	b.log.InfoContext(ctx, "Broadcast finished", "sent", report.Sent, "failed", report.Failed)
	return report
}
