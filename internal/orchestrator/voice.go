package orchestrator

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/edgard/personabot/internal/backend"
	"github.com/edgard/personabot/internal/chat"
	apperrors "github.com/edgard/personabot/internal/errors"
	"github.com/edgard/personabot/internal/presets"
	"github.com/edgard/personabot/internal/text"
)

// MaxCustomPromptRunes bounds a user-defined persona prompt.
const MaxCustomPromptRunes = 2000

const voiceFileName = "voice.ogg"

func (o *Orchestrator) processVoice(ctx context.Context, log *slog.Logger, in InboundVoice) error {
	p, err := o.deps.Profiles.Load(ctx, in.identity())
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	if !p.IsSubscribed && !o.deps.Profiles.IsAdmin(in.UserID) {
		o.send(ctx, log, in.ChatID, o.msgs.SubscribeToUnlock, chat.SendOptions{})
		return nil
	}

	key := o.deps.Config.Speech.Transcriber
	adapter, ok := o.deps.Backends.Lookup(key)
	if !ok {
		log.WarnContext(ctx, "Voice message received but no transcriber is configured", "transcriber", key)
		o.send(ctx, log, in.ChatID, o.msgs.ModelUnavailable, chat.SendOptions{})
		return nil
	}

	audio, err := o.deps.Files.FetchInboundFile(ctx, in.FileID)
	if err != nil {
		log.WarnContext(ctx, "Failed to download voice message", "file_id", in.FileID, "error", err)
		o.send(ctx, log, in.ChatID, o.msgs.VoiceFailed, chat.SendOptions{})
		return nil
	}

	result := o.invoke(ctx, log, in.ChatID, "", adapter, backend.Request{
		ModelKey:  key,
		Audio:     audio,
		AudioName: voiceFileName,
	})
	transcript := strings.TrimSpace(result.Text)
	if !result.OK() || transcript == "" {
		log.WarnContext(ctx, "Transcription failed", "outcome", result.Outcome.String(), "detail", result.Detail)
		o.send(ctx, log, in.ChatID, o.msgs.VoiceFailed, chat.SendOptions{})
		return nil
	}

	echo := fmt.Sprintf(o.msgs.VoiceTranscript, html.EscapeString(transcript))
	o.send(ctx, log, in.ChatID, echo, chat.SendOptions{HTML: true})

	if !p.VoiceInput {
		return nil
	}
	if isCommand(transcript) {
		log.DebugContext(ctx, "Transcript looks like a command", "text", text.Preview(transcript, 32))
		o.notice(ctx, log, in.ChatID, o.msgs.UnknownCommand)
		return nil
	}

	return o.process(ctx, log, Inbound{
		UserID:    in.UserID,
		ChatID:    in.ChatID,
		FirstName: in.FirstName,
		Username:  in.Username,
		Text:      transcript,
	})
}

// HandleCustomPrompt validates and stores a custom persona prompt and switches
// the user to the custom persona. Validation errors are reported to the user
// and returned so the caller can keep waiting for input.
func (o *Orchestrator) HandleCustomPrompt(ctx context.Context, userID, chatID int64, prompt string) (err error) {
	log := o.log.With("user_id", userID, "chat_id", chatID)

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Recovered from panic while saving custom prompt", "panic", r)
			o.fail(ctx, log, chatID)
			err = fmt.Errorf("panic while saving custom prompt: %v", r)
		}
	}()

	prompt = strings.TrimSpace(prompt)
	switch {
	case prompt == "":
		o.send(ctx, log, chatID, o.msgs.CustomPromptEmpty, chat.SendOptions{})
		return apperrors.NewValidationError(o.msgs.CustomPromptEmpty, nil)
	case utf8.RuneCountInString(prompt) > MaxCustomPromptRunes:
		message := fmt.Sprintf(o.msgs.CustomPromptTooLong, MaxCustomPromptRunes)
		o.send(ctx, log, chatID, message, chat.SendOptions{})
		return apperrors.NewValidationError(message, nil)
	}

	if err := o.deps.Store.SetCustomPrompt(ctx, userID, presets.CustomPersonaKey, prompt); err != nil {
		log.ErrorContext(ctx, "Failed to save custom prompt", "error", err)
		o.fail(ctx, log, chatID)
		return fmt.Errorf("failed to save custom prompt: %w", err)
	}

	log.InfoContext(ctx, "Custom prompt saved", "length", utf8.RuneCountInString(prompt))
	o.send(ctx, log, chatID, o.msgs.CustomPromptSaved, chat.SendOptions{})
	return nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("body exceeds %d bytes", limit)
	}
	return data, nil
}
