package logger

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestTruncateStringKeepsRunes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "При...", truncateString("Привет, мир", 6))
	assert.Equal(t, "...", truncateString("abcdef", 2))
}

func TestErr(t *testing.T) {
	t.Parallel()

	attr := Err(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.String())
	assert.Equal(t, "", Err(nil).Value.String())
}

func TestUpdateAttrs(t *testing.T) {
	t.Parallel()

	update := &models.Update{
		ID: 7,
		Message: &models.Message{
			ID:   3,
			Chat: models.Chat{ID: 42},
			From: &models.User{ID: 42},
			Text: "hello",
		},
	}

	attrs := UpdateAttrs(update)
	assert.Contains(t, attrs, "message")
	assert.Contains(t, attrs, "hello")
	assert.Contains(t, attrs, int64(42))

	other := UpdateAttrs(&models.Update{ID: 8})
	assert.Contains(t, other, "other")
}
