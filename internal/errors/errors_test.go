package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNexusError_Error(t *testing.T) {
	err := &NexusError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "note not found",
	}

	expected := "NOT_FOUND: note not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("content is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "content is required" {
		t.Errorf("Message = %q, want %q", err.Message, "content is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01ABC")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "01ABC" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "01ABC")
	}
}

func TestNewNoteTooLarge(t *testing.T) {
	err := NewNoteTooLarge(8000, 9001)

	if err.Code != ErrNoteTooLarge {
		t.Errorf("Code = %q, want %q", err.Code, ErrNoteTooLarge)
	}
	if err.Status != 413 {
		t.Errorf("Status = %d, want 413", err.Status)
	}
	if err.Details["max_chars"] != 8000 || err.Details["actual_chars"] != 9001 {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestNewProvider_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewProvider("embedding", cause)

	if err.Code != ErrProvider {
		t.Errorf("Code = %q, want %q", err.Code, ErrProvider)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if err.Message != "embedding provider failed: connection refused" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewPersistence(t *testing.T) {
	err := NewPersistence(fmt.Errorf("disk I/O error"))

	if err.Code != ErrPersistence {
		t.Errorf("Code = %q, want %q", err.Code, ErrPersistence)
	}
	if err.Message != "disk I/O error" {
		t.Errorf("Message = %q", err.Message)
	}

	nilErr := NewPersistence(nil)
	if nilErr.Message != "storage failure" {
		t.Errorf("Message = %q, want default", nilErr.Message)
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("export")
	if err.Code != ErrCancelled || err.Status != 499 {
		t.Errorf("got %s/%d", err.Code, err.Status)
	}
	if err.Message != "export cancelled" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("boom"))
	if err.Code != ErrInternal || err.Message != "boom" {
		t.Errorf("got %s %q", err.Code, err.Message)
	}
	if NewInternal(nil).Message != "internal error" {
		t.Error("nil cause should use default message")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("x"), ErrNotFound, true},
		{"different code", NewNotFound("x"), ErrInvalidRequest, false},
		{"plain error", fmt.Errorf("plain"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}
