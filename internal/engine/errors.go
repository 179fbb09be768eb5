package engine

import (
	"errors"
	"fmt"
)

// SyncError represents an error detected while executing a dual write
// or a replay pass.
//
// Sync errors include:
//   - Connectivity: the probe or a ping says the backend is unreachable
//   - Remote write: online, but the backend rejected or timed out a write
//   - Local storage: the local store failed to persist or read
//   - Validation: the operation was rejected before touching any state
//
// The coordinator swallows CONNECTIVITY and REMOTE_WRITE into
// queue-and-notice behavior; LOCAL_STORAGE propagates to the caller;
// VALIDATION is returned synchronously with nothing changed.
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Message is a human-readable description.
	Message string

	// EntityID identifies the affected record (item id, order id).
	EntityID string

	// Err is the underlying cause, if any.
	Err error
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// ErrCodeConnectivity indicates the backend is unreachable.
	ErrCodeConnectivity SyncErrorCode = "CONNECTIVITY"

	// ErrCodeRemoteWrite indicates an online write was rejected or timed out.
	ErrCodeRemoteWrite SyncErrorCode = "REMOTE_WRITE"

	// ErrCodeLocalStorage indicates the local store failed. Fatal for
	// the operation; nothing may be assumed persisted.
	ErrCodeLocalStorage SyncErrorCode = "LOCAL_STORAGE"

	// ErrCodeValidation indicates the operation was rejected up front.
	ErrCodeValidation SyncErrorCode = "VALIDATION"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s: %s (entity=%s)", e.Code, e.Message, e.EntityID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsConnectivityError reports whether err is a connectivity failure.
// Uses errors.As to handle wrapped errors.
func IsConnectivityError(err error) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Code == ErrCodeConnectivity
}

// IsRemoteWriteError reports whether err is a rejected remote write.
func IsRemoteWriteError(err error) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Code == ErrCodeRemoteWrite
}

// IsLocalStorageError reports whether err is a local persistence failure.
func IsLocalStorageError(err error) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Code == ErrCodeLocalStorage
}

// IsValidationError reports whether err is a synchronous rejection.
func IsValidationError(err error) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Code == ErrCodeValidation
}

// NewValidationError creates a SyncError for an up-front rejection.
func NewValidationError(entityID, msg string) *SyncError {
	return &SyncError{Code: ErrCodeValidation, Message: msg, EntityID: entityID}
}

// NewLocalStorageError wraps a local store failure.
func NewLocalStorageError(op string, err error) *SyncError {
	return &SyncError{
		Code:    ErrCodeLocalStorage,
		Message: fmt.Sprintf("local store: %s", op),
		Err:     err,
	}
}

// NewConnectivityError reports an unreachable backend.
func NewConnectivityError(msg string, err error) *SyncError {
	return &SyncError{
		Code:    ErrCodeConnectivity,
		Message: msg,
		Err:     err,
	}
}

// NewRemoteWriteError wraps a failed online write attempt.
func NewRemoteWriteError(entityID string, err error) *SyncError {
	return &SyncError{
		Code:     ErrCodeRemoteWrite,
		Message:  "remote write failed",
		EntityID: entityID,
		Err:      err,
	}
}
