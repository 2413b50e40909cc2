package entitlement

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/personabot/internal/config"
	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/presets"
)

var testMessages = Messages{
	LimitExhausted: "Лимит запросов к %s исчерпан",
	UsageDenied:    "Модель недоступна",
}

func newGate(t *testing.T, quota config.QuotaConfig, admins ...int64) (*Gate, database.Store) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "gate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	for _, id := range []int64{1, 2, 3} {
		_, err := store.UpsertUserProfile(context.Background(),
			database.UserIdentity{UserID: id},
			database.ProfileDefaults{ModelKey: "gpt-4o", PersonaKey: "tarot_reader", UsageMonth: "2026-10"},
			time.Now())
		require.NoError(t, err)
	}

	isAdmin := func(id int64) bool {
		for _, a := range admins {
			if a == id {
				return true
			}
		}
		return false
	}

	gate := NewGate(store, presets.Default(), quota, isAdmin, testMessages, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return gate, store
}

func TestFreeTierCounting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gate, store := newGate(t, config.QuotaConfig{FreeLimit: 2})

	for i := 0; i < 2; i++ {
		d, err := gate.CheckUsage(ctx, 1, "gpt-4o")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Empty(t, d.Reason)
	}

	counts, err := store.GetUsageCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["gpt-4o"])

	d, err := gate.CheckUsage(ctx, 1, "gpt-4o")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "GPT-4o")

	counts, err = store.GetUsageCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["gpt-4o"], "denied requests do not count")
}

func TestSubscribedNeverMutates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gate, store := newGate(t, config.QuotaConfig{FreeLimit: 2})

	end := time.Now().AddDate(0, 0, 30)
	require.NoError(t, store.ActivateSubscription(ctx, 2, time.Now(), &end))

	for i := 0; i < 5; i++ {
		d, err := gate.CheckUsage(ctx, 2, "claude")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	counts, err := store.GetUsageCounts(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestAdminOverride(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gate, store := newGate(t, config.QuotaConfig{FreeLimit: 1}, 3)

	_, err := store.IncrementUsageIfBelow(ctx, 3, "gpt-4o", 1)
	require.NoError(t, err)

	d, err := gate.CheckUsage(ctx, 3, "gpt-4o")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "admins pass even at the limit and unsubscribed")
}

func TestUnknownModelDenied(t *testing.T) {
	t.Parallel()

	gate, _ := newGate(t, config.QuotaConfig{FreeLimit: 2})

	d, err := gate.CheckUsage(context.Background(), 1, "no-such-model")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, testMessages.UsageDenied, d.Reason)
}

func TestQuotaKeysAndLimits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gate, store := newGate(t, config.QuotaConfig{
		FreeLimit: 2,
		Limits:    map[string]int{"dalle3": 1},
		QuotaKeys: map[string]string{"dalle3": "images", "midjourney": "images"},
	})

	d, err := gate.CheckUsage(ctx, 1, "dalle3")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = gate.CheckUsage(ctx, 1, "dalle3")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = gate.CheckUsage(ctx, 1, "midjourney")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "midjourney shares the counter but keeps the default limit of 2")

	counts, err := store.GetUsageCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"images": 2}, counts)
}

func TestMissingProfileIsError(t *testing.T) {
	t.Parallel()

	gate, _ := newGate(t, config.QuotaConfig{FreeLimit: 2})
	_, err := gate.CheckUsage(context.Background(), 404, "gpt-4o")
	assert.Error(t, err)
}
