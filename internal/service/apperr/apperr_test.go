package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"invalid request", InvalidRequest("no order items"), ErrInvalidRequest},
		{"not found", NotFound("order not found"), ErrNotFound},
		{"forbidden", Forbidden("not yours"), ErrForbidden},
		{"unauthorized", Unauthorized("no token"), ErrUnauthorized},
		{"storage", Storage("failed to insert order", errors.New("connection reset")), ErrStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			wrapped := fmt.Errorf("failed to place order: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
		})
	}
}

func TestStorageKeepsExistingKind(t *testing.T) {
	notFound := NotFound("order not found")
	err := Storage("failed to mark order paid", fmt.Errorf("lookup: %w", notFound))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrStorage)
}

func TestStorageNil(t *testing.T) {
	assert.NoError(t, Storage("noop", nil))
}

func TestStorageUnwrapsCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := Storage("failed to commit", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "deadlock detected")
}

func TestMessageHidesStorageCause(t *testing.T) {
	assert.Equal(t, "no order items", Message(InvalidRequest("no order items"), "internal error"))
	assert.Equal(t, "internal error", Message(Storage("failed", errors.New("dsn leaked")), "internal error"))
	assert.Equal(t, "internal error", Message(errors.New("plain"), "internal error"))
}
