// Package core provides the careermem client: the per-user memory store, the
// extraction pipeline, relevance retrieval and background maintenance.
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/hireflow/careermem-go/pkg/storage"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested user store or memory was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed caller input, such as an unknown
	// memory type or empty content.
	ErrValidation = errors.New("validation failed")

	// ErrExtractionFailed indicates that the LLM extraction response could not
	// be used. It is logged on background paths and never returned from them.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrPersistenceConflict indicates that a write kept losing version races.
	ErrPersistenceConflict = errors.New("persistence conflict")

	// ErrUpstreamTimeout indicates that an LLM or store call ran out of time.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStorageOperation indicates that a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrLLMOperation indicates that an LLM operation failed.
	ErrLLMOperation = errors.New("llm operation failed")

	// ErrLLMNotConfigured indicates that an operation needs an LLM provider
	// and the client has none.
	ErrLLMNotConfigured = errors.New("llm provider not configured")
)

// MemoryError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
//
// Example:
//
//	err := &MemoryError{
//	    Op:  "AddMemory",
//	    Err: ErrValidation,
//	}
//	// Error() returns: "careermem: AddMemory: validation failed"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "careermem: <Op>: <Err>"
func (e *MemoryError) Error() string {
	return fmt.Sprintf("careermem: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with MemoryError.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewMemoryError("AddMemory", err)
//	}
//
// Parameters:
//   - op: Name of the operation (e.g., "AddMemory", "GetRelevant")
//   - err: The underlying error to wrap
//
// Returns a MemoryError, or nil if err is nil.
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{
		Op:  op,
		Err: err,
	}
}

// storageError maps storage and context errors onto the client's sentinels
// and wraps the result with op.
func storageError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return NewMemoryError(op, fmt.Errorf("%w: %w", ErrNotFound, err))
	case errors.Is(err, storage.ErrConflict):
		return NewMemoryError(op, fmt.Errorf("%w: %w", ErrPersistenceConflict, err))
	case errors.Is(err, context.DeadlineExceeded):
		return NewMemoryError(op, fmt.Errorf("%w: %w", ErrUpstreamTimeout, err))
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation):
		return NewMemoryError(op, err)
	default:
		return NewMemoryError(op, fmt.Errorf("%w: %w", ErrStorageOperation, err))
	}
}

// llmError maps an LLM failure onto ErrUpstreamTimeout or ErrLLMOperation.
func llmError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrLLMOperation, err)
}

// WrapStorageError maps a storage-layer error onto the client's sentinels the
// same way client operations do. Services that keep their own documents in
// the client's DocumentStore use it so callers can match ErrNotFound and
// ErrPersistenceConflict uniformly.
func WrapStorageError(op string, err error) error {
	return storageError(op, err)
}

// WrapLLMError maps an LLM failure onto ErrUpstreamTimeout or ErrLLMOperation
// and wraps it with op.
func WrapLLMError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewMemoryError(op, llmError(err))
}
