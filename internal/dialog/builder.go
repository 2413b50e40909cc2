// Package dialog assembles the message list sent to text backends: the persona
// system prompt, a bounded window of past exchanges and the new user turn.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edgard/personabot/internal/backend"
	"github.com/edgard/personabot/internal/database"
	"github.com/edgard/personabot/internal/presets"
)

// Builder reads history and profiles; it never writes.
type Builder struct {
	store     database.Store
	registry  *presets.Registry
	maxTokens int
	log       *slog.Logger
}

// NewBuilder creates a Builder. maxTokens bounds the estimated size of the
// history window; 0 keeps every entry up to maxHistory.
func NewBuilder(store database.Store, registry *presets.Registry, maxTokens int, logger *slog.Logger) *Builder {
	return &Builder{
		store:     store,
		registry:  registry,
		maxTokens: maxTokens,
		log:       logger.With("component", "dialog_builder"),
	}
}

// BuildMessages returns system, then (user, assistant) pairs oldest first, then the new user turn.
func (b *Builder) BuildMessages(ctx context.Context, userID int64, personaKey, userText string, maxHistory int) ([]backend.Message, error) {
	system, err := b.SystemPrompt(ctx, userID, personaKey)
	if err != nil {
		return nil, err
	}

	var history []database.HistoryEntry
	if maxHistory > 0 {
		history, err = b.store.GetRecentHistory(ctx, userID, maxHistory)
		if err != nil {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
	}

	history = b.fitWindow(ctx, history, EstimateTokens(system), EstimateTokens(userText))

	messages := make([]backend.Message, 0, len(history)*2+2)
	messages = append(messages, backend.Message{Role: backend.RoleSystem, Content: system})
	for _, h := range history {
		messages = append(messages,
			backend.Message{Role: backend.RoleUser, Content: h.Query},
			backend.Message{Role: backend.RoleAssistant, Content: h.Response},
		)
	}
	messages = append(messages, backend.Message{Role: backend.RoleUser, Content: userText})

	return messages, nil
}

// SystemPrompt resolves the persona prompt. The custom persona uses the stored
// prompt verbatim when it is set. The global suffix is always appended.
func (b *Builder) SystemPrompt(ctx context.Context, userID int64, personaKey string) (string, error) {
	var prompt string

	if personaKey == presets.CustomPersonaKey {
		profile, err := b.store.GetUserProfile(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("failed to load custom prompt: %w", err)
		}
		if profile != nil {
			prompt = strings.TrimSpace(profile.CustomPrompt)
		}
	}

	if prompt == "" {
		prompt = b.registry.ResolvePersona(personaKey).Prompt
	}
	if prompt == "" {
		prompt = b.registry.DefaultPersona().Prompt
	}

	return prompt + "\n" + b.registry.SystemSuffix(), nil
}

// fitWindow drops the oldest entries until the estimated size fits maxTokens.
func (b *Builder) fitWindow(ctx context.Context, history []database.HistoryEntry, systemTokens, currentTokens int) []database.HistoryEntry {
	if b.maxTokens <= 0 || len(history) == 0 {
		return history
	}

	available := b.maxTokens - systemTokens - currentTokens
	if available <= 0 {
		return nil
	}

	used := 0
	first := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := EstimateTokens(history[i].Query) + EstimateTokens(history[i].Response)
		if used+cost > available {
			break
		}
		used += cost
		first = i
	}

	if first > 0 {
		b.log.DebugContext(ctx, "History window trimmed",
			"total_entries", len(history),
			"kept_entries", len(history)-first,
			"estimated_tokens", used,
			"available_tokens", available)
	}
	return history[first:]
}

// EstimateTokens is a provider-agnostic size estimate: a rune count divided
// by three plus a small per-message overhead.
func EstimateTokens(s string) int {
	return len([]rune(s))/3 + 5
}
