package utils

import "errors"

// Error codes surfaced to API clients
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeTransient    = "TRANSIENT_ERROR"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func NewAppError(code string, message string, details ...string) *AppError {
	err := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// Typed constructors used by the engine services; handlers map them back to
// HTTP statuses via SendAppError.

func ValidationError(message string, details ...string) *AppError {
	return NewAppError(ErrCodeValidation, message, details...)
}

func ConflictError(message string, details ...string) *AppError {
	return NewAppError(ErrCodeConflict, message, details...)
}

func NotFoundError(message string, details ...string) *AppError {
	return NewAppError(ErrCodeNotFound, message, details...)
}

func TransientError(message string, details ...string) *AppError {
	return NewAppError(ErrCodeTransient, message, details...)
}

// AsAppError unwraps err into an *AppError if one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given application error code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
