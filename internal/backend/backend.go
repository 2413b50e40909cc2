// Package backend dispatches requests to AI providers. Every provider sits behind
// the Adapter interface and reports a closed set of outcomes instead of SDK errors.
package backend

import (
	"context"
	"slices"
	"sync"

	"github.com/edgard/personabot/internal/presets"
)

// Message roles understood by every text adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Outcome is the result class of an adapter call.
type Outcome int

const (
	Success Outcome = iota
	RateLimited
	ProviderError
	ContentPolicy
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RateLimited:
		return "rate_limited"
	case ProviderError:
		return "provider_error"
	case ContentPolicy:
		return "content_policy"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// PayloadKind tells which Result field carries the payload.
type PayloadKind int

const (
	KindText PayloadKind = iota
	KindImage
	KindTranscript
	KindAudio
)

// Request is the uniform adapter input. Text adapters read Messages, the
// transcriber reads Audio and the synthesizer speaks the last user turn.
type Request struct {
	ModelKey      string
	ProviderModel string
	Params        presets.GenerationParams
	Messages      []Message
	Audio         []byte
	AudioName     string
}

// LastUserText returns the content of the final user turn.
func (r Request) LastUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Result is the uniform adapter output. Detail carries the provider-side
// explanation of a failure for logging only.
type Result struct {
	Outcome   Outcome
	Kind      PayloadKind
	Text      string
	ImageURL  string
	ImageData []byte
	Audio     []byte
	Detail    string
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Outcome == Success }

func failure(outcome Outcome, detail string) Result {
	return Result{Outcome: outcome, Detail: detail}
}

// Adapter invokes one provider. Invoke must never panic on provider errors
// and must honour ctx cancellation.
type Adapter interface {
	Capability() presets.Capability
	Invoke(ctx context.Context, req Request) Result
}

// Table maps model keys to adapters. It is safe for concurrent use.
type Table struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{adapters: make(map[string]Adapter)}
}

// Register binds key to adapter, replacing any previous binding.
func (t *Table) Register(key string, adapter Adapter) {
	if adapter == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.adapters[key] = adapter
}

func (t *Table) Lookup(key string) (Adapter, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.adapters[key]
	return a, ok
}

func (t *Table) Has(key string) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Keys returns the registered model keys in sorted order.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.adapters))
	for k := range t.adapters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
