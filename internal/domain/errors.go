package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling (OCP compliance).
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("version conflict")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrExternalService = errors.New("external service error")
)

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a document, branch, template or log entry was not found
	NotFoundError struct {
		ResourceType string
		ResourceID   string
	}

	// ValidationError indicates a malformed patch, unknown path/block or type mismatch.
	// OpIndex is -1 when the failure is not tied to a single patch operation.
	ValidationError struct {
		Message string
		OpIndex int
		Path    string
	}

	// ForbiddenError indicates the caller does not own the resource
	ForbiddenError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

// NewNotFound builds a NotFoundError for the given resource.
func NewNotFound(resourceType, id string) *NotFoundError {
	return &NotFoundError{ResourceType: resourceType, ResourceID: id}
}

// NewValidation builds a ValidationError that is not tied to a patch operation.
func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...), OpIndex: -1}
}

// NewOpValidation builds a ValidationError for the operation at index with the given path.
func NewOpValidation(index int, path, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...), OpIndex: index, Path: path}
}

// Error implementations
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.ResourceType, e.ResourceID)
}

func (e *ValidationError) Error() string {
	if e.OpIndex >= 0 {
		return fmt.Sprintf("operation %d (%s): %s", e.OpIndex, e.Path, e.Message)
	}
	return e.Message
}

func (e *ForbiddenError) Error() string    { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

// Is allows errors.Is() to match the typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// ConflictError is returned when a commit is attempted against a stale version.
// The caller must re-read the current state and retry; no merge is attempted.
type ConflictError struct {
	ResourceType    string // document or branch
	ResourceID      string
	ExpectedVersion int // version the caller based its change on
	ActualVersion   int // committed version at the time of the check (0 if unknown)
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	if e.ActualVersion > 0 {
		return fmt.Sprintf("%s %s changed: expected version %d, current version is %d; refresh and retry",
			e.ResourceType, e.ResourceID, e.ExpectedVersion, e.ActualVersion)
	}
	return fmt.Sprintf("%s %s changed since version %d; refresh and retry",
		e.ResourceType, e.ResourceID, e.ExpectedVersion)
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ExternalServiceError wraps a failure of the generative model (or another
// remote dependency). No mutation happens when one is returned.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ExternalServiceError) StatusCode() int { return http.StatusBadGateway }

func (e *ExternalServiceError) Is(target error) bool {
	return target == ErrExternalService
}
