package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/edgard/personabot/internal/errors"
)

func TestCode(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("disk full")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", apperrors.NewValidationError("empty prompt", nil), apperrors.CodeValidation},
		{"database", apperrors.NewDatabaseError("insert failed", cause), apperrors.CodeDatabase},
		{"delivery wrapped", fmt.Errorf("send: %w", apperrors.NewDeliveryError("blocked", cause)), apperrors.CodeDelivery},
		{"config", apperrors.NewConfigError("bad", nil), apperrors.CodeConfig},
		{"plain", cause, apperrors.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, apperrors.Code(tt.err))
		})
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("connection reset")
	err := apperrors.NewDeliveryError("send failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "send failed: connection reset", err.Error())
	assert.True(t, apperrors.IsDelivery(err))
	assert.False(t, apperrors.IsValidation(err))
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	msg, ok := apperrors.UserMessage(fmt.Errorf("grant: %w", apperrors.NewValidationError("no targets", stderrors.New("x"))))
	assert.True(t, ok)
	assert.Equal(t, "no targets", msg)

	_, ok = apperrors.UserMessage(apperrors.NewDatabaseError("db", nil))
	assert.False(t, ok)
}
