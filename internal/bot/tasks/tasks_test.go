package tasks

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/personabot/internal/chat"
	"github.com/edgard/personabot/internal/config"
	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/subscription"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type recordingInvoices struct {
	mu    sync.Mutex
	chats []int64
}

func (r *recordingInvoices) SendInvoice(_ context.Context, chatID int64, _ chat.Invoice) (chat.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, chatID)
	return chat.MessageRef{ChatID: chatID, MessageID: len(r.chats)}, nil
}

func newDeps(t *testing.T) (TaskDeps, *recordingInvoices) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewStore(db, log)
	invoices := &recordingInvoices{}
	cfg := config.SubscriptionConfig{Price: 150, Days: 30, Currency: "XTR", Title: "t", Description: "d", Label: "l"}

	return TaskDeps{
		Logger:        log,
		Store:         store,
		Subscriptions: subscription.NewService(store, invoices, cfg, log),
		Config:        &config.Config{Subscription: cfg},
		Now:           func() time.Time { return testNow },
	}, invoices
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()
	deps, _ := newDeps(t)

	tasks := RegisterAllTasks(deps)

	assert.Len(t, tasks, 2)
	assert.Contains(t, tasks, SQLMaintenanceTask)
	assert.Contains(t, tasks, SubscriptionExpiryTask)
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()
	deps, _ := newDeps(t)

	require.NoError(t, newSQLMaintenanceTask(deps)(context.Background()))
}

func TestSubscriptionExpiryTask(t *testing.T) {
	t.Parallel()
	deps, invoices := newDeps(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		_, err := deps.Store.UpsertUserProfile(ctx,
			database.UserIdentity{UserID: id},
			database.ProfileDefaults{ModelKey: "gpt-4o", PersonaKey: "tarot_reader", UsageMonth: "2026-10"},
			testNow)
		require.NoError(t, err)
	}
	tomorrow := testNow.AddDate(0, 0, 1)
	later := testNow.AddDate(0, 0, 10)
	require.NoError(t, deps.Store.ActivateSubscription(ctx, 1, testNow.AddDate(0, 0, -29), &tomorrow))
	require.NoError(t, deps.Store.ActivateSubscription(ctx, 2, testNow, &later))

	task := newSubscriptionExpiryTask(deps)
	require.NoError(t, task(ctx))
	require.NoError(t, task(ctx))

	assert.Equal(t, []int64{1}, invoices.chats)
}

func TestSubscriptionExpiryTaskCancelled(t *testing.T) {
	t.Parallel()
	deps, _ := newDeps(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, newSubscriptionExpiryTask(deps)(ctx))
}
