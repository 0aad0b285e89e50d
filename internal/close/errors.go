package close

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDateRangeInvalid indicates start_date is not strictly before end_date.
	ErrDateRangeInvalid = errors.New("close: start date must be before end date")
	// ErrOverlappingPeriod indicates the requested range intersects an existing period.
	ErrOverlappingPeriod = errors.New("close: period overlaps existing range")
	// ErrDuplicatePeriod indicates the company already has a period with this name.
	ErrDuplicatePeriod = errors.New("close: period name already exists")
	// ErrInvalidTransition indicates the lifecycle graph has no such edge.
	ErrInvalidTransition = errors.New("close: invalid status transition")
	// ErrValidationBlocked indicates error-severity checks failed.
	ErrValidationBlocked = errors.New("close: validation blocked")
	// ErrInsufficientPrivilege indicates the actor lacks the required role.
	ErrInsufficientPrivilege = errors.New("close: insufficient privilege")
	// ErrMissingReason indicates a reopen without a reason.
	ErrMissingReason = errors.New("close: reason is required")
	// ErrConfirmationMismatch indicates the permanent close token did not match.
	ErrConfirmationMismatch = errors.New("close: confirmation mismatch")
	// ErrConflict indicates a concurrent transition or stale write.
	ErrConflict = errors.New("close: conflicting transition in progress")
	// ErrNotClosed indicates the operation requires a Closed period.
	ErrNotClosed = errors.New("close: period is not closed")
	// ErrPeriodNotFound indicates the period could not be loaded.
	ErrPeriodNotFound = errors.New("close: period not found")
	// ErrNoFieldsProvided indicates an empty config update.
	ErrNoFieldsProvided = errors.New("close: no fields provided")
	// ErrRetainedEarnings indicates the retained earnings account is unusable.
	ErrRetainedEarnings = errors.New("close: retained earnings account invalid")
	// ErrLaterPeriodClosed indicates a subsequent period is already closed.
	ErrLaterPeriodClosed = errors.New("close: a later period is already closed")
	// ErrUnbalancedJournal indicates generated closing lines do not balance.
	ErrUnbalancedJournal = errors.New("close: closing journal is not balanced")
)

// TransitionError reports a rejected status change.
type TransitionError struct {
	From      PeriodStatus
	To        PeriodStatus
	notClosed bool
}

func (e *TransitionError) Error() string {
	if e.notClosed {
		return fmt.Sprintf("close: period is %s, expected %s", e.From, PeriodStatusClosed)
	}
	return fmt.Sprintf("close: cannot move period from %s to %s", e.From, e.To)
}

// Is matches ErrInvalidTransition, and ErrNotClosed when the source status was not Closed.
func (e *TransitionError) Is(target error) bool {
	switch target {
	case ErrInvalidTransition:
		return true
	case ErrNotClosed:
		return e.notClosed
	default:
		return false
	}
}

// ValidationBlockedError carries every failing check that blocked a close.
type ValidationBlockedError struct {
	Results []ValidationResult
}

func (e *ValidationBlockedError) Error() string {
	names := make([]string, 0, len(e.Results))
	for _, r := range e.Results {
		names = append(names, r.CheckName)
	}
	return fmt.Sprintf("close: validation blocked by %s", strings.Join(names, ", "))
}

func (e *ValidationBlockedError) Unwrap() error {
	return ErrValidationBlocked
}

// PrivilegeError names the role the actor is missing.
type PrivilegeError struct {
	Actor string
	Role  string
}

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf("close: %q requires role %q", e.Actor, e.Role)
}

func (e *PrivilegeError) Unwrap() error {
	return ErrInsufficientPrivilege
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// InputError lists every invalid field of a request.
type InputError struct {
	Fields []FieldError
}

// ErrInvalidInput is matched by every InputError.
var ErrInvalidInput = errors.New("close: invalid input")

func (e *InputError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "close: invalid input: " + strings.Join(parts, "; ")
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}
