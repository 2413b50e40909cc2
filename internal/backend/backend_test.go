package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	gopenai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/personabot/internal/presets"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubAdapter struct {
	calls   atomic.Int32
	results []Result
	block   bool
}

func (s *stubAdapter) Capability() presets.Capability { return presets.CapabilityText }

func (s *stubAdapter) Invoke(ctx context.Context, _ Request) Result {
	n := int(s.calls.Add(1)) - 1
	if s.block {
		<-ctx.Done()
		return failure(Unavailable, ctx.Err().Error())
	}
	if n < len(s.results) {
		return s.results[n]
	}
	return s.results[len(s.results)-1]
}

func TestTable(t *testing.T) {
	t.Parallel()

	table := NewTable()
	table.Register("b", &stubAdapter{results: []Result{{}}})
	table.Register("a", &stubAdapter{results: []Result{{}}})
	table.Register("nil", nil)

	assert.True(t, table.Has("a"))
	assert.False(t, table.Has("nil"))
	assert.False(t, table.Has("missing"))
	assert.Equal(t, []string{"a", "b"}, table.Keys())

	_, ok := table.Lookup("b")
	assert.True(t, ok)
}

func TestLastUserText(t *testing.T) {
	t.Parallel()

	req := Request{Messages: []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "draw a cat"},
	}}
	assert.Equal(t, "draw a cat", req.LastUserText())
	assert.Equal(t, "", Request{}.LastUserText())
}

func TestGuardTripsOnProviderFailures(t *testing.T) {
	t.Parallel()

	inner := &stubAdapter{results: []Result{failure(ProviderError, "boom")}}
	guard := NewGuard(inner, GuardConfig{Name: "test", MaxFailures: 2, Cooldown: time.Minute, Timeout: time.Second}, discardLogger())

	assert.Equal(t, ProviderError, guard.Invoke(context.Background(), Request{}).Outcome)
	assert.Equal(t, ProviderError, guard.Invoke(context.Background(), Request{}).Outcome)
	assert.Equal(t, gobreaker.StateOpen, guard.State())

	result := guard.Invoke(context.Background(), Request{})
	assert.Equal(t, Unavailable, result.Outcome)
	assert.Equal(t, int32(2), inner.calls.Load(), "open breaker never reaches the provider")
}

func TestGuardIgnoresAnswers(t *testing.T) {
	t.Parallel()

	inner := &stubAdapter{results: []Result{failure(RateLimited, "slow down"), failure(ContentPolicy, "no")}}
	guard := NewGuard(inner, GuardConfig{Name: "test", MaxFailures: 1, Cooldown: time.Minute, Timeout: time.Second}, discardLogger())

	assert.Equal(t, RateLimited, guard.Invoke(context.Background(), Request{}).Outcome)
	assert.Equal(t, ContentPolicy, guard.Invoke(context.Background(), Request{}).Outcome)
	assert.Equal(t, gobreaker.StateClosed, guard.State())
}

func TestGuardTimeout(t *testing.T) {
	t.Parallel()

	inner := &stubAdapter{block: true}
	guard := NewGuard(inner, GuardConfig{Name: "slow", Timeout: 20 * time.Millisecond}, discardLogger())

	start := time.Now()
	result := guard.Invoke(context.Background(), Request{})
	assert.Equal(t, Unavailable, result.Outcome)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClassifyOpenAIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, Success},
		{"deadline", context.DeadlineExceeded, Unavailable},
		{"rate limit", &gopenai.APIError{HTTPStatusCode: 429, Message: "too many"}, RateLimited},
		{"server error", &gopenai.APIError{HTTPStatusCode: 500, Message: "oops"}, ProviderError},
		{"overloaded", &gopenai.APIError{HTTPStatusCode: 503, Message: "busy"}, Unavailable},
		{"content policy", &gopenai.APIError{HTTPStatusCode: 400, Code: "content_policy_violation"}, ContentPolicy},
		{"transport", &gopenai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, ProviderError},
		{"unknown", errors.New("weird"), ProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, classifyOpenAIError(tt.err).Outcome)
		})
	}
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rate_limited", RateLimited.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}
