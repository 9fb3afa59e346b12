// Package shared contains the error taxonomy and domain events used across all
// domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrInvalidFormat = errors.New("invalid format")

	// Auction errors
	ErrInvalidContinuation = errors.New("invalid continuation")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "practice", "learner"
	Op      string // Operation that failed, e.g., "GetExercise"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Practice domain errors
var (
	ErrDealNotFound        = NewDomainError("practice", "GetDeal", ErrNotFound, "deal not found")
	ErrExerciseNotFound    = NewDomainError("practice", "GetExercise", ErrNotFound, "exercise not found")
	ErrExerciseBidNotFound = NewDomainError("practice", "GetExerciseBid", ErrNotFound, "exercise bid not found")
	ErrCommentNotFound     = NewDomainError("practice", "GetComment", ErrNotFound, "comment not found")
	ErrNoConflicts         = NewDomainError("practice", "ConflictingExercise", ErrNotFound, "no exercise has conflicting bids")
	ErrEmptyComment        = NewDomainError("practice", "AddComment", ErrEmptyValue, "comment text is required")
)

// Learner domain errors
var (
	ErrLearnerNotFound      = NewDomainError("learner", "Find", ErrNotFound, "learner not found")
	ErrLearnerAlreadyExists = NewDomainError("learner", "Create", ErrAlreadyExists, "learner already exists")
	ErrInvalidEmail         = NewDomainError("learner", "Validate", ErrInvalidInput, "invalid email")
	ErrWeakPassword         = NewDomainError("learner", "Validate", ErrInvalidInput, "password must be at least 8 characters")
	ErrInvalidCredentials   = NewDomainError("learner", "Login", ErrUnauthorized, "invalid email or password")
	ErrInvalidSession       = NewDomainError("learner", "Authenticate", ErrUnauthorized, "invalid or expired session")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsFormat checks if the error came from parsing malformed text.
func IsFormat(err error) bool {
	return errors.Is(err, ErrInvalidFormat)
}

// IsInvalidContinuation checks if a call was rejected by the auction rules.
func IsInvalidContinuation(err error) bool {
	return errors.Is(err, ErrInvalidContinuation)
}

// IsUnauthorized checks if the error is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrInvalidFormat)
}
