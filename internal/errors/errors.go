package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so sentinels below work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the outermost error code, or "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeDatabaseError       = "DATABASE_ERROR"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeExternalService     = "EXTERNAL_SERVICE_ERROR"
	CodeUnsupportedAnalysis = "UNSUPPORTED_ANALYSIS"
	CodeUnsupportedAction   = "UNSUPPORTED_ACTION"
	CodeComputationError    = "COMPUTATION_ERROR"
	CodeStorageError        = "STORAGE_ERROR"
)

// Sentinels for errors.Is; they compare by code only.
var (
	ErrValidation          = New(CodeValidationError, "validation failed")
	ErrNotFound            = New(CodeNotFound, "not found")
	ErrUnsupportedAnalysis = New(CodeUnsupportedAnalysis, "unsupported analysis")
	ErrUnsupportedAction   = New(CodeUnsupportedAction, "unsupported action")
	ErrComputation         = New(CodeComputationError, "computation failed")
	ErrStorage             = New(CodeStorageError, "storage failed")
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func Validationf(format string, args ...interface{}) *AppError {
	return Newf(CodeValidationError, format, args...)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s service error", service),
		Cause:   cause,
	}
}

func UnsupportedAnalysis(analysisType string) *AppError {
	return New(CodeUnsupportedAnalysis, fmt.Sprintf("analysis type %q is not supported", analysisType))
}

func UnsupportedAction(action string) *AppError {
	return New(CodeUnsupportedAction, fmt.Sprintf("action %q is not supported", action))
}

func Computationf(format string, args ...interface{}) *AppError {
	return Newf(CodeComputationError, format, args...)
}

func StorageError(message string, cause error) *AppError {
	return &AppError{Code: CodeStorageError, Message: message, Cause: cause}
}

// Kind predicates
func IsValidation(err error) bool { return stderrors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return stderrors.Is(err, ErrNotFound) }
func IsStorage(err error) bool    { return stderrors.Is(err, ErrStorage) }
func IsComputation(err error) bool {
	return stderrors.Is(err, ErrComputation)
}
