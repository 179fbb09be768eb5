package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncErrorPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", NewValidationError("it-1", "bad quantity"), IsValidationError},
		{"local storage", NewLocalStorageError("save items", errors.New("disk full")), IsLocalStorageError},
		{"remote write", NewRemoteWriteError("it-1", errors.New("timeout")), IsRemoteWriteError},
		{"connectivity", NewConnectivityError("unreachable", errors.New("dial timeout")), IsConnectivityError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))

			// Predicates see through wrapping.
			wrapped := fmt.Errorf("finalize: %w", tt.err)
			assert.True(t, tt.check(wrapped))

			// Codes never cross-match.
			assert.False(t, IsValidationError(errors.New("plain")))
		})
	}
}

func TestSyncErrorMessageIncludesEntity(t *testing.T) {
	err := NewValidationError("it-7", "insufficient stock")
	assert.Contains(t, err.Error(), "VALIDATION")
	assert.Contains(t, err.Error(), "it-7")

	bare := &SyncError{Code: ErrCodeConnectivity, Message: "backend away"}
	assert.Equal(t, "CONNECTIVITY: backend away", bare.Error())
}

func TestSyncErrorUnwrap(t *testing.T) {
	cause := errors.New("replica set down")
	err := NewRemoteWriteError("o-1", cause)
	assert.ErrorIs(t, err, cause)
}
