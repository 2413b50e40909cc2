package profile

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/presets"
)

type fixture struct {
	store   database.Store
	manager *Manager
	now     time.Time
}

func newFixture(t *testing.T, admins ...int64) *fixture {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "profile.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	f := &fixture{
		store: database.NewStore(db, nil),
		now:   time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC),
	}
	f.manager = NewManager(f.store, presets.Default(), admins,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(func() time.Time { return f.now }))
	return f
}

var alice = Identity{UserID: 100, FirstName: "Alice", Username: "alice"}

func TestLoadCreatesProfileWithDefaults(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p, err := f.manager.Load(context.Background(), alice)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", p.ModelKey)
	assert.Equal(t, "tarot_reader", p.PersonaKey)
	assert.Equal(t, "2026-10", p.UsageMonth)
	assert.False(t, p.IsSubscribed)
}

func TestLoadCoercesUnsubscribedSelection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	_, err := f.manager.Load(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, f.store.SetModel(ctx, alice.UserID, "claude"))
	require.NoError(t, f.store.SetPersona(ctx, alice.UserID, "villain"))

	p, err := f.manager.Load(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", p.ModelKey)
	assert.Equal(t, "tarot_reader", p.PersonaKey)
}

func TestLoadKeepsFreePersona(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	_, err := f.manager.Load(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, f.store.SetPersona(ctx, alice.UserID, "numerologist"))

	p, err := f.manager.Load(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "numerologist", p.PersonaKey)
}

func TestLoadRollsOverMonthOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	_, err := f.manager.Load(ctx, alice)
	require.NoError(t, err)

	_, err = f.store.IncrementUsageIfBelow(ctx, alice.UserID, "gpt-4o", 2)
	require.NoError(t, err)
	_, err = f.store.IncrementUsageIfBelow(ctx, alice.UserID, "gpt-4o", 2)
	require.NoError(t, err)

	f.now = time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)
	p, err := f.manager.Load(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "2026-11", p.UsageMonth)

	counts, err := f.store.GetUsageCounts(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, counts)

	_, err = f.store.IncrementUsageIfBelow(ctx, alice.UserID, "gpt-4o", 2)
	require.NoError(t, err)

	_, err = f.manager.Load(ctx, alice)
	require.NoError(t, err)
	counts, err = f.store.GetUsageCounts(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["gpt-4o"], "second load in the same month keeps counters")
}

func TestLoadAdminOverride(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, alice.UserID)

	p, err := f.manager.Load(ctx, alice)
	require.NoError(t, err)
	assert.True(t, p.IsSubscribed)
	assert.True(t, p.HasNoExpiry())
	assert.True(t, f.manager.IsAdmin(alice.UserID))

	require.NoError(t, f.store.SetModel(ctx, alice.UserID, "claude"))
	p, err = f.manager.Load(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "claude", p.ModelKey, "admins keep premium selections")
}

func TestLoadExpiresSubscription(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		end         time.Time
		wantExpired bool
	}{
		{"ended yesterday", time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC), true},
		{"ends today", time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC), true},
		{"ends tomorrow", time.Date(2026, 10, 20, 1, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			f := newFixture(t)
			_, err := f.manager.Load(ctx, alice)
			require.NoError(t, err)

			end := tt.end
			require.NoError(t, f.store.ActivateSubscription(ctx, alice.UserID, end.AddDate(0, 0, -30), &end))
			require.NoError(t, f.store.SetModel(ctx, alice.UserID, "claude"))

			p, err := f.manager.Load(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, !tt.wantExpired, p.IsSubscribed)
			if tt.wantExpired {
				assert.Equal(t, "gpt-4o", p.ModelKey)
			} else {
				assert.Equal(t, "claude", p.ModelKey)
			}
		})
	}
}

func TestDateHelpers(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 12, 31, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-12", MonthKey(ts))
	assert.Equal(t, "2026-12-31", DateKey(ts))
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), StartOfTomorrow(ts))
}
