package service

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorType int

const (
	ErrUnauthorized ErrorType = iota
	ErrForbidden
	ErrNotFound
	ErrValidation
	ErrDuplicate
	ErrStore
	ErrUnknown
)

// DashboardError carries a classification so transport layers can map
// failures to status codes without parsing messages.
type DashboardError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *DashboardError {
	return &DashboardError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *DashboardError {
	return &DashboardError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *DashboardError) Error() string {
	var parts []string
	parts = append(parts, e.Message)

	if len(e.Context) > 0 {
		var ctxParts []string
		for k, v := range e.Context {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *DashboardError) Unwrap() error {
	return e.Cause
}

func (e *DashboardError) WithContext(key string, value any) *DashboardError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrUnauthorized:
		return "Unauthorized"
	case ErrForbidden:
		return "Forbidden"
	case ErrNotFound:
		return "NotFound"
	case ErrValidation:
		return "Validation"
	case ErrDuplicate:
		return "Duplicate"
	case ErrStore:
		return "Store"
	default:
		return "Unknown"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var dashErr *DashboardError
	if errors.As(err, &dashErr) {
		return dashErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *DashboardError {
	return NewErrorWithCause(errorType, message, err)
}
