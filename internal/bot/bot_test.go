package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFlusher struct {
	calls atomic.Int32
}

func (f *countingFlusher) Flush(context.Context) int {
	f.calls.Add(1)
	return 2
}

func newPollingBot(t *testing.T) *tgbot.Bot {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getUpdates") {
			select {
			case <-time.After(20 * time.Millisecond):
			case <-r.Context().Done():
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	t.Cleanup(srv.Close)

	b, err := tgbot.New("123456:TEST", tgbot.WithServerURL(srv.URL), tgbot.WithSkipGetMe())
	require.NoError(t, err)
	return b
}

func TestRunStopsOnCancelAndFlushes(t *testing.T) {
	t.Parallel()

	scheduler, err := NewScheduler(discardLogger(), nil, nil)
	require.NoError(t, err)
	flusher := &countingFlusher{}
	b := NewBot(discardLogger(), newPollingBot(t), scheduler, nil, flusher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, int32(1), flusher.calls.Load())
}

func TestRunServesMetrics(t *testing.T) {
	t.Parallel()

	scheduler, err := NewScheduler(discardLogger(), nil, nil)
	require.NoError(t, err)
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	b := NewBot(discardLogger(), newPollingBot(t), scheduler, srv, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	require.NoError(t, b.Run(ctx))
}
