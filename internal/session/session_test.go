package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/personabot/internal/config"
)

func TestMemoryGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := NewMemoryGuard()

	ok, err := g.Acquire(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire is rejected")

	ok, err = g.Acquire(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok, "other users are independent")

	g.Release(ctx, 1)
	ok, err = g.Acquire(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	g.Release(ctx, 99)
	assert.Equal(t, 2, g.Pending())
}

func TestMemoryGuardConcurrent(t *testing.T) {
	t.Parallel()

	g := NewMemoryGuard()
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := g.Acquire(context.Background(), 7); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func setupRedisGuard(t *testing.T, ttl time.Duration) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisGuard(client, ttl, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestRedisGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, mr := setupRedisGuard(t, time.Minute)

	ok, err := g.Acquire(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("personabot:inflight:5"))

	ok, err = g.Acquire(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	g.Release(ctx, 5)
	assert.False(t, mr.Exists("personabot:inflight:5"))

	ok, err = g.Acquire(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuardExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, mr := setupRedisGuard(t, 10*time.Second)

	ok, err := g.Acquire(ctx, 6)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	other := setupRedisGuardOn(t, mr)
	ok, err = other.Acquire(ctx, 6)
	require.NoError(t, err)
	assert.True(t, ok, "expired slot can be taken by another process")

	g.Release(ctx, 6)
	assert.True(t, mr.Exists("personabot:inflight:6"), "stale holder must not free the new slot")
}

func setupRedisGuardOn(t *testing.T, mr *miniredis.Miniredis) *RedisGuard {
	t.Helper()

	client, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisGuard(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewRedisClientFailsFast(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestStates(t *testing.T) {
	t.Parallel()

	s := NewStates()

	state, _ := s.Get(1)
	assert.Equal(t, StateNone, state)

	s.Set(1, AwaitingBroadcastText, "draft")
	state, payload := s.Get(1)
	assert.Equal(t, AwaitingBroadcastText, state)
	assert.Equal(t, "draft", payload)

	state, payload = s.Take(1)
	assert.Equal(t, AwaitingBroadcastText, state)
	assert.Equal(t, "draft", payload)

	state, _ = s.Take(1)
	assert.Equal(t, StateNone, state)

	s.Set(2, AwaitingCustomPrompt, "")
	s.Clear(2)
	state, _ = s.Get(2)
	assert.Equal(t, StateNone, state)

	s.Set(3, AwaitingGrantTargets, "")
	s.Set(3, StateNone, "")
	state, _ = s.Get(3)
	assert.Equal(t, StateNone, state)
	assert.Equal(t, "awaiting_grant_targets", AwaitingGrantTargets.String())
}
