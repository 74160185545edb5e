package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ValidationError reports input that breaks a domain rule. Message is the
// exact text shown to the caller.
type ValidationError struct {
	Field   string
	Message string
	Code    string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidation builds a ValidationError with the generic invalid-input code.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Code: ValidationInvalidInput}
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Resource string
	ID       interface{}
	Code     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func NewNotFound(resource string, id interface{}) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id, Code: ResourceNotFound}
}

// ConflictError reports a write that collides with existing state.
type ConflictError struct {
	Message string
	Code    string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflict(message string) *ConflictError {
	return &ConflictError{Message: message, Code: ResourceConflict}
}

// DependencyError wraps a failure in storage, messaging or the database.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

func NewDependency(dependency string, err error) *DependencyError {
	return &DependencyError{Dependency: dependency, Err: err}
}

// IsValidation, IsNotFound, IsConflict and IsDependency unwrap err looking
// for the matching taxonomy type.

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsDependency(err error) bool {
	var d *DependencyError
	return errors.As(err, &d)
}

// RespondError maps a service error onto the HTTP error body. Errors outside
// the taxonomy fall through to ParseError.
func RespondError(c *gin.Context, err error, context string) {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		conflict   *ConflictError
		dependency *DependencyError
	)
	switch {
	case errors.As(err, &validation):
		code := validation.Code
		if code == "" {
			code = ValidationInvalidInput
		}
		BadRequest(c, code, validation.Message)
	case errors.As(err, &notFound):
		code := notFound.Code
		if code == "" {
			code = ResourceNotFound
		}
		NotFound(c, code, notFoundMessage(notFound.Resource))
	case errors.As(err, &conflict):
		code := conflict.Code
		if code == "" {
			code = ResourceConflict
		}
		Conflict(c, code, conflict.Message)
	case errors.As(err, &dependency):
		RespondWithError(c, http.StatusBadGateway, InternalExternalAPI,
			fmt.Sprintf("The %s service is unavailable, please try again later", dependency.Dependency))
	default:
		ParseAndRespond(c, http.StatusInternalServerError, err, context)
	}
}

func notFoundMessage(resource string) string {
	if resource == "" {
		return "The requested resource was not found"
	}
	return fmt.Sprintf("%s not found", capitalize(resource))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
