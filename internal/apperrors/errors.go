// Package apperrors defines the coded error taxonomy shared by the record
// stores, the workflow engine and the HTTP surface.
package apperrors

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown           Code = "UNKNOWN"
	CodeValidation        Code = "VALIDATION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeAlreadyFinalized  Code = "ALREADY_FINALIZED"
	CodeStoreUnavailable  Code = "STORE_UNAVAILABLE"
	CodeCommitFailed      Code = "COMMIT_FAILED"
)

// Metadata keys attached to commit failures.
const (
	MetaStage          = "stage"
	MetaReconciliation = "reconciliation"

	ReconciliationRequired = "required"
	ReconciliationNone     = "none"
)

// HTTPStatus maps a code to the status the API responds with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition, CodeAlreadyFinalized:
		return http.StatusConflict
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is comparisons by code.
var (
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "record not found"}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition, Message: "status transition is not allowed"}
	ErrAlreadyFinalized  = &Error{Code: CodeAlreadyFinalized, Message: "content is already finalized"}
	ErrStoreUnavailable  = &Error{Code: CodeStoreUnavailable, Message: "record store unavailable"}
	ErrCommitFailed      = &Error{Code: CodeCommitFailed, Message: "commit failed"}
)

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithMetadata creates a domain error carrying metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Validation reports bad caller input. Nothing has been persisted.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// NotFound reports that the referenced record is absent.
func NotFound(kind, id string) *Error {
	return WithMetadata(CodeNotFound, kind+" not found", map[string]string{"kind": kind, "id": id})
}

// Unavailable wraps a backend failure as retryable.
func Unavailable(op string, cause error) *Error {
	return Wrap(CodeStoreUnavailable, op, cause)
}

// CommitFailed reports a mid-transaction failure. When compensated is false the
// persisted state is partially committed and needs reconciliation.
func CommitFailed(stage string, compensated bool, cause error) *Error {
	reconciliation := ReconciliationNone
	msg := "commit failed at " + stage
	if !compensated {
		reconciliation = ReconciliationRequired
		msg += " (reconciliation required)"
	}
	return &Error{
		Code:    CodeCommitFailed,
		Message: msg,
		Metadata: map[string]string{
			MetaStage:          stage,
			MetaReconciliation: reconciliation,
		},
		Cause: cause,
	}
}

// GetCode extracts the code from any error, CodeUnknown if none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error carries the given code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// NeedsReconciliation reports whether err is a commit failure that left
// persisted state partially updated.
func NeedsReconciliation(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Code != CodeCommitFailed {
		return false
	}
	return e.Metadata[MetaReconciliation] == ReconciliationRequired
}

// Stage returns the commit stage recorded on a commit failure.
func Stage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata[MetaStage]
	}
	return ""
}
