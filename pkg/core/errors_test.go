package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	careermem "github.com/hireflow/careermem-go/pkg/core"
	"github.com/hireflow/careermem-go/pkg/storage"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "ErrNotFound", err: careermem.ErrNotFound, expected: "not found"},
		{name: "ErrValidation", err: careermem.ErrValidation, expected: "validation failed"},
		{name: "ErrExtractionFailed", err: careermem.ErrExtractionFailed, expected: "extraction failed"},
		{name: "ErrPersistenceConflict", err: careermem.ErrPersistenceConflict, expected: "persistence conflict"},
		{name: "ErrUpstreamTimeout", err: careermem.ErrUpstreamTimeout, expected: "upstream timeout"},
		{name: "ErrInvalidConfig", err: careermem.ErrInvalidConfig, expected: "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestMemoryError(t *testing.T) {
	originalErr := errors.New("original error")
	memErr := careermem.NewMemoryError("test_operation", originalErr)

	assert.Equal(t, "careermem: test_operation: original error", memErr.Error())
	assert.ErrorIs(t, memErr, originalErr)

	var target *careermem.MemoryError
	assert.True(t, errors.As(memErr, &target))
	assert.Equal(t, "test_operation", target.Op)
}

func TestNewMemoryErrorNil(t *testing.T) {
	assert.NoError(t, careermem.NewMemoryError("noop", nil))
}

func TestWrapStorageError(t *testing.T) {
	assert.ErrorIs(t, careermem.WrapStorageError("Get", storage.ErrNotFound), careermem.ErrNotFound)
	assert.ErrorIs(t, careermem.WrapStorageError("Put", fmt.Errorf("put: %w", storage.ErrConflict)), careermem.ErrPersistenceConflict)
	assert.ErrorIs(t, careermem.WrapStorageError("Put", errors.New("disk full")), careermem.ErrStorageOperation)
	assert.NoError(t, careermem.WrapStorageError("Put", nil))
}

func TestWrapLLMError(t *testing.T) {
	assert.ErrorIs(t, careermem.WrapLLMError("Reply", context.DeadlineExceeded), careermem.ErrUpstreamTimeout)
	assert.ErrorIs(t, careermem.WrapLLMError("Reply", errors.New("503")), careermem.ErrLLMOperation)
	assert.NoError(t, careermem.WrapLLMError("Reply", nil))
}
