package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/edgard/personabot/internal/chat"
	"github.com/edgard/personabot/internal/metrics"
)

type recordingMessenger struct {
	mu      sync.Mutex
	blocked map[int64]bool
	sent    []int64
}

func (m *recordingMessenger) SendText(_ context.Context, chatID int64, _ string, _ chat.SendOptions) (chat.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blocked[chatID] {
		return chat.MessageRef{}, errors.New("Forbidden: bot was blocked by the user")
	}
	m.sent = append(m.sent, chatID)
	return chat.MessageRef{ChatID: chatID, MessageID: len(m.sent)}, nil
}

func (m *recordingMessenger) SendImage(context.Context, int64, []byte, string) (chat.MessageRef, error) {
	return chat.MessageRef{}, nil
}

func (m *recordingMessenger) SendAudio(context.Context, int64, []byte) (chat.MessageRef, error) {
	return chat.MessageRef{}, nil
}

func (m *recordingMessenger) EditText(context.Context, chat.MessageRef, string, chat.SendOptions) error {
	return nil
}

func (m *recordingMessenger) DeleteMessage(context.Context, chat.MessageRef) error { return nil }

func TestSendToleratesFailures(t *testing.T) {
	t.Parallel()

	messenger := &recordingMessenger{blocked: map[int64]bool{2: true, 4: true}}
	m := metrics.New(prometheus.NewRegistry())
	b := New(messenger, 1000, 10, m, nil)

	report := b.Send(context.Background(), []int64{1, 2, 3, 4, 5}, "maintenance", chat.SendOptions{})

	assert.Equal(t, Report{Sent: 3, Failed: 2}, report)
	assert.Equal(t, []int64{1, 3, 5}, messenger.sent)
	assert.InDelta(t, 3, testutil.ToFloat64(m.BroadcastMessages.WithLabelValues("sent")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.BroadcastMessages.WithLabelValues("failed")), 0)
}

func TestSendThrottles(t *testing.T) {
	t.Parallel()

	messenger := &recordingMessenger{}
	b := New(messenger, 20, 1, nil, nil)

	start := time.Now()
	report := b.Send(context.Background(), []int64{1, 2, 3, 4, 5}, "hi", chat.SendOptions{})

	assert.Equal(t, 5, report.Sent)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestSendStopsOnCancel(t *testing.T) {
	t.Parallel()

	messenger := &recordingMessenger{}
	b := New(messenger, 1, 1, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report := b.Send(ctx, []int64{1, 2, 3}, "hi", chat.SendOptions{})

	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 2, report.Failed)
}

func TestSendEmpty(t *testing.T) {
	t.Parallel()

	b := New(&recordingMessenger{}, 10, 1, nil, nil)
	assert.Equal(t, Report{}, b.Send(context.Background(), nil, "hi", chat.SendOptions{}))
}
