package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Cornell error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrSectionNotFound  ErrorCode = "SECTION_NOT_FOUND" // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrConflict         ErrorCode = "CONFLICT"          // 409
	ErrCancelled        ErrorCode = "CANCELLED"         // 499
	ErrInternal         ErrorCode = "INTERNAL"          // 500
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE" // 503
)

// NoteError represents a structured error with code, status, and details.
type NoteError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *NoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *NoteError {
	return &NoteError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a note cannot be found.
func NewNotFound(id string) *NoteError {
	return &NoteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("note not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewSectionNotFound creates a 404 error for an unknown section within a note.
func NewSectionNotFound(noteID, sectionID string) *NoteError {
	return &NoteError{
		Code:    ErrSectionNotFound,
		Status:  404,
		Message: fmt.Sprintf("section %s not found in note %s", sectionID, noteID),
		Details: map[string]any{"note_id": noteID, "section_id": sectionID},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *NoteError {
	return &NoteError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *NoteError {
	return &NoteError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewCancelled creates an error for an operation stopped by its context.
func NewCancelled(op string) *NoteError {
	return &NoteError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewStoreUnavailable creates a 503 error when the backing store is closed or unreachable.
func NewStoreUnavailable(err error) *NoteError {
	msg := "store unavailable"
	if err != nil {
		msg = fmt.Sprintf("store unavailable: %v", err)
	}
	return &NoteError{
		Code:    ErrStoreUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *NoteError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &NoteError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a NoteError with the given code.
func Is(err error, code ErrorCode) bool {
	var nErr *NoteError
	if stderrors.As(err, &nErr) {
		return nErr.Code == code
	}
	return false
}

// As returns the NoteError in err's chain, wrapping anything else as internal.
func As(err error) *NoteError {
	var nErr *NoteError
	if stderrors.As(err, &nErr) {
		return nErr
	}
	return NewInternal(err)
}
