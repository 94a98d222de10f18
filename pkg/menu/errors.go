package menu

import (
	"errors"
	"fmt"
)

// ErrorClass classifies an error for retry and transport mapping.
type ErrorClass string

const (
	// ErrorClassValidation marks a malformed or inconsistent request.
	// Surfaced synchronously, never retried.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassInfeasible marks a request the planner cannot satisfy:
	// empty catalog after filtering, budget too low, or no feasible
	// solution after search. Never retried automatically.
	ErrorClassInfeasible ErrorClass = "infeasible"

	// ErrorClassConnectivity marks a store or upstream transport failure.
	// Retried by the store gateway; surfaced as service-unavailable once
	// retries are exhausted.
	ErrorClassConnectivity ErrorClass = "connectivity"

	// ErrorClassConflict marks a lock that exists but cannot be resolved
	// to a task. Retryable by the caller.
	ErrorClassConflict ErrorClass = "conflict"

	// ErrorClassOverloaded marks an admission-control rejection.
	// Retryable after backoff.
	ErrorClassOverloaded ErrorClass = "overloaded"

	// ErrorClassInternal marks an unexpected failure.
	ErrorClassInternal ErrorClass = "internal"
)

// Common error codes for programmatic handling.
const (
	ErrCodeInsufficientCatalog = "INSUFFICIENT_CATALOG"
	ErrCodeNoFeasibleSolution  = "NO_FEASIBLE_SOLUTION"
	ErrCodeEmptyCatalog        = "EMPTY_CATALOG"
	ErrCodeBudgetTooLow        = "BUDGET_TOO_LOW"
	ErrCodeStoreUnavailable    = "STORE_UNAVAILABLE"
	ErrCodeLockUnresolvable    = "LOCK_UNRESOLVABLE"
	ErrCodeOverloaded          = "OVERLOADED"
)

// Error is a classified error with optional code and wrapped cause.
type Error struct {
	Class   ErrorClass `json:"class"`
	Message string     `json:"message"`
	Code    string     `json:"code,omitempty"`
	Err     error      `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Class, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements equality for errors.Is: two classified errors match
// when class and code agree.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// WithCode attaches an error code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// NewValidationError creates a validation-class error.
func NewValidationError(message string, err error) *Error {
	return &Error{Class: ErrorClassValidation, Message: message, Err: err}
}

// NewInfeasibleError creates an infeasible-class error.
func NewInfeasibleError(message string, err error) *Error {
	return &Error{Class: ErrorClassInfeasible, Message: message, Err: err}
}

// NewConnectivityError creates a connectivity-class error.
func NewConnectivityError(message string, err error) *Error {
	return &Error{Class: ErrorClassConnectivity, Message: message, Err: err}
}

// NewConflictError creates a conflict-class error.
func NewConflictError(message string, err error) *Error {
	return &Error{Class: ErrorClassConflict, Message: message, Err: err}
}

// NewOverloadedError creates an overloaded-class error.
func NewOverloadedError(message string, err error) *Error {
	return &Error{Class: ErrorClassOverloaded, Message: message, Err: err}
}

// NewInternalError creates an internal-class error.
func NewInternalError(message string, err error) *Error {
	return &Error{Class: ErrorClassInternal, Message: message, Err: err}
}

func classOf(err error) (ErrorClass, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Class, true
	}
	return "", false
}

// IsValidation reports whether err is validation-class.
func IsValidation(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassValidation
}

// IsInfeasible reports whether err is infeasible-class.
func IsInfeasible(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassInfeasible
}

// IsConnectivity reports whether err is connectivity-class.
func IsConnectivity(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassConnectivity
}

// IsConflict reports whether err is conflict-class.
func IsConflict(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassConflict
}

// IsOverloaded reports whether err is overloaded-class.
func IsOverloaded(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassOverloaded
}

// IsRetryable reports whether the caller may retry after backoff.
// Connectivity, conflict, and overloaded errors are retryable;
// validation and infeasible errors are not.
func IsRetryable(err error) bool {
	return IsConnectivity(err) || IsConflict(err) || IsOverloaded(err)
}
