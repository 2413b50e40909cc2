package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/edgard/personabot/internal/chat"
)

const reapTimeout = 10 * time.Second

// AfterFunc schedules f after d and returns a function that cancels it,
// reporting whether f was still pending.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timerAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Reaper deletes transient notices after a delay. Every pending deletion can be
// cancelled, and Flush runs whatever is still pending.
type Reaper struct {
	deleteFn  func(ctx context.Context, ref chat.MessageRef) error
	ttl       time.Duration
	afterFunc AfterFunc
	log       *slog.Logger

	mu      sync.Mutex
	pending map[chat.MessageRef]func() bool
	flushed bool
}

// ReaperOption configures a Reaper.
type ReaperOption func(*Reaper)

// WithAfterFunc replaces time.AfterFunc, for tests.
func WithAfterFunc(fn AfterFunc) ReaperOption {
	return func(r *Reaper) { r.afterFunc = fn }
}

// NewReaper creates a Reaper. A ttl of zero or less disables reaping.
func NewReaper(deleteFn func(ctx context.Context, ref chat.MessageRef) error, ttl time.Duration, logger *slog.Logger, opts ...ReaperOption) *Reaper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Reaper{
		deleteFn:  deleteFn,
		ttl:       ttl,
		afterFunc: timerAfterFunc,
		log:       logger.With("component", "notice_reaper"),
		pending:   make(map[chat.MessageRef]func() bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schedule arranges for ref to be deleted after the ttl. After Flush the
// deletion runs immediately.
func (r *Reaper) Schedule(ref chat.MessageRef) {
	if r.ttl <= 0 || ref.MessageID == 0 {
		return
	}

	r.mu.Lock()
	if r.flushed {
		r.mu.Unlock()
		r.reap(ref)
		return
	}
	if stop, ok := r.pending[ref]; ok {
		stop()
	}
	r.pending[ref] = r.afterFunc(r.ttl, func() { r.fire(ref) })
	r.mu.Unlock()
}

// Cancel drops a pending deletion. It reports whether one was pending.
func (r *Reaper) Cancel(ref chat.MessageRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	stop, ok := r.pending[ref]
	if !ok {
		return false
	}
	delete(r.pending, ref)
	stop()
	return true
}

// Pending returns the number of scheduled deletions.
func (r *Reaper) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush cancels every timer and runs the pending deletions now. It returns how
// many deletions ran.
func (r *Reaper) Flush(ctx context.Context) int {
	r.mu.Lock()
	refs := make([]chat.MessageRef, 0, len(r.pending))
	for ref, stop := range r.pending {
		stop()
		refs = append(refs, ref)
	}
	clear(r.pending)
	r.flushed = true
	r.mu.Unlock()

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		r.reap(ref)
	}

	r.log.InfoContext(ctx, "Flushed transient notices", "count", len(refs))
	return len(refs)
}

func (r *Reaper) fire(ref chat.MessageRef) {
	r.mu.Lock()
	_, ok := r.pending[ref]
	delete(r.pending, ref)
	r.mu.Unlock()

	if ok {
		r.reap(ref)
	}
}

func (r *Reaper) reap(ref chat.MessageRef) {
	ctx, cancel := context.WithTimeout(context.Background(), reapTimeout)
	defer cancel()

	if err := r.deleteFn(ctx, ref); err != nil {
		r.log.DebugContext(ctx, "Failed to delete transient notice", "chat_id", ref.ChatID, "message_id", ref.MessageID, "error", err)
	}
}
