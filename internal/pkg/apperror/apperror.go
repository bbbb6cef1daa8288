package apperror

import "errors"

// AppError is an error that knows which HTTP status it maps to.
// Sentinels are declared per module with New and refined with WithMessage or WithErr.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithMessage returns a copy of e with a more specific user-facing message.
// The copy still matches e under errors.Is.
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e,
	}
}

// WithErr returns a copy of e that also carries the internal cause.
// The copy matches both e and cause under errors.Is.
func (e *AppError) WithErr(cause error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     errors.Join(e, cause),
	}
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
