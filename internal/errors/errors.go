package errors

import "fmt"

// ErrorCode represents a Nexus error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrConflict       ErrorCode = "CONFLICT"          // 409
	ErrNoteTooLarge   ErrorCode = "NOTE_TOO_LARGE"    // 413
	ErrCancelled      ErrorCode = "CANCELLED"         // 499
	ErrPersistence    ErrorCode = "PERSISTENCE_ERROR" // 500
	ErrInternal       ErrorCode = "INTERNAL"          // 500
	ErrProvider       ErrorCode = "PROVIDER_ERROR"    // 502
)

// NexusError represents a structured error with code, status, and details.
type NexusError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *NexusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *NexusError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *NexusError {
	return &NexusError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a note cannot be found.
func NewNotFound(identifier string) *NexusError {
	return &NexusError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("note not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *NexusError {
	return &NexusError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for id collisions.
func NewConflict(msg string) *NexusError {
	return &NexusError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewNoteTooLarge creates a 413 error when note content exceeds the size limit.
func NewNoteTooLarge(max, actual int) *NexusError {
	return &NexusError{
		Code:    ErrNoteTooLarge,
		Status:  413,
		Message: fmt.Sprintf("note exceeds maximum size: %d chars (max %d)", actual, max),
		Details: map[string]any{"max_chars": max, "actual_chars": actual},
	}
}

// NewCancelled creates a 499 error when the caller cancelled the operation.
func NewCancelled(op string) *NexusError {
	return &NexusError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewProvider creates a 502 error for embedding or classification backend failures.
func NewProvider(provider string, err error) *NexusError {
	msg := fmt.Sprintf("%s provider failed", provider)
	if err != nil {
		msg = fmt.Sprintf("%s provider failed: %v", provider, err)
	}
	return &NexusError{
		Code:    ErrProvider,
		Status:  502,
		Message: msg,
		Details: map[string]any{"provider": provider},
		cause:   err,
	}
}

// NewPersistence creates a 500 error for storage read/write failures.
func NewPersistence(err error) *NexusError {
	msg := "storage failure"
	if err != nil {
		msg = err.Error()
	}
	return &NexusError{
		Code:    ErrPersistence,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *NexusError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &NexusError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is a NexusError with the given code.
func Is(err error, code ErrorCode) bool {
	if nErr, ok := err.(*NexusError); ok {
		return nErr.Code == code
	}
	return false
}
