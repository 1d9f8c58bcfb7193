package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "bad input", ValidationError("bad input").Error())

	err := StorageError("save failed", stderrors.New("disk full"))
	assert.Equal(t, "save failed: disk full", err.Error())
	assert.Equal(t, "disk full", stderrors.Unwrap(err).Error())
}

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		validation  bool
		notFound    bool
		storage     bool
		computation bool
	}{
		{"validation", Validationf("column %q", "x"), true, false, false, false},
		{"not found", NotFound("dataset"), false, true, false, false},
		{"storage wrapped by fmt", fmt.Errorf("save: %w", StorageError("write", nil)), false, false, true, false},
		{"computation", Computationf("singular matrix"), false, false, false, true},
		{"plain error", stderrors.New("boom"), false, false, false, false},
		{"nil", nil, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.validation, IsValidation(tt.err))
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.storage, IsStorage(tt.err))
			assert.Equal(t, tt.computation, IsComputation(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ctx"))

	inner := NotFound("dataset")
	wrapped := Wrap(inner, "loading project")
	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "loading project: dataset not found", wrapped.Error())

	plain := Wrapf(stderrors.New("eof"), "reading %s", "file.csv")
	assert.Equal(t, CodeInternalError, GetCode(plain))
	assert.True(t, IsAppError(plain))
}

func TestWithCodeAndGetCode(t *testing.T) {
	assert.Nil(t, WithCode(CodeStorageError, nil))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("x")))

	err := WithCode(CodeStorageError, stderrors.New("timeout"))
	assert.True(t, IsStorage(err))
	assert.Equal(t, "timeout", err.Error())

	recoded := WithCode(CodeComputationError, ValidationError("n < 3"))
	assert.Equal(t, CodeComputationError, GetCode(recoded))
	assert.False(t, IsValidation(recoded))
}
