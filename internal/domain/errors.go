package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while recording judgments and
// computing rankings.
var (
	// ErrItemOutOfRange indicates that an item index is outside [0, N).
	ErrItemOutOfRange = errors.New("item index out of range")

	// ErrSameItem indicates that a judgment compares an item with itself.
	ErrSameItem = errors.New("item compared with itself")

	// ErrUnknownOutcome indicates that a judgment result is not one of the
	// recognized outcomes.
	ErrUnknownOutcome = errors.New("unknown judgment result")

	// ErrNoState indicates that no engine state exists for a respondent.
	// The caller must restart the flow.
	ErrNoState = errors.New("no engine state")

	// ErrCorruptState indicates that a serialized engine state could not be
	// reconstructed into a valid forest and adjacency relation.
	ErrCorruptState = errors.New("corrupt engine state")

	// ErrRankingIncomplete indicates that finalization was requested while an
	// undetermined pair of clusters remains.
	ErrRankingIncomplete = errors.New("ranking incomplete")

	// ErrPrecedenceCycle indicates that the precedence judgments among cluster
	// roots contain a cycle, so no topological order covers every cluster.
	ErrPrecedenceCycle = errors.New("precedence cycle among clusters")

	// ErrUnrankedItems indicates that a finalized ranking does not cover
	// every item of the universe.
	ErrUnrankedItems = errors.New("items missing from ranking")

	// ErrAlreadyParticipated indicates that the caller already started a survey.
	ErrAlreadyParticipated = errors.New("already participated")

	// ErrAccessDenied indicates that a credential does not grant access to
	// a gated view.
	ErrAccessDenied = errors.New("access denied")

	// ErrRespondentNotFound indicates that a respondent record does not exist.
	ErrRespondentNotFound = errors.New("respondent not found")

	// ErrEmptyValue indicates that a required value is empty or nil.
	ErrEmptyValue = errors.New("empty value")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// InputError represents a rejected judgment. State is never mutated when an
// InputError is returned.
type InputError struct {
	// Field names the offending input field (e.g. "item_a", "result").
	Field string

	// Value is the rejected value, rendered for diagnostics.
	Value any

	// Err is the underlying error that caused the rejection.
	Err error
}

// Error implements the error interface for InputError.
func (e *InputError) Error() string {
	return fmt.Sprintf("input error: field=%s, value=%v, err=%v", e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *InputError) Unwrap() error { return e.Err }

// NewInputError creates a new InputError with the given details.
func NewInputError(field string, value any, err error) *InputError {
	return &InputError{
		Field: field,
		Value: value,
		Err:   err,
	}
}

// StateError represents an error caused by missing or unusable per-respondent
// engine state. It provides context about which respondent and operation
// caused the error.
type StateError struct {
	// RespondentID identifies the respondent whose state was involved.
	// It is empty when the error originates below the service layer.
	RespondentID string

	// Operation describes what operation was being performed when the error occurred.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for StateError.
func (e *StateError) Error() string {
	return fmt.Sprintf("state error: operation=%s, respondent=%s, err=%v", e.Operation, e.RespondentID, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *StateError) Unwrap() error { return e.Err }

// NewStateError creates a new StateError with the given details.
func NewStateError(respondentID, operation string, err error) *StateError {
	return &StateError{
		RespondentID: respondentID,
		Operation:    operation,
		Err:          err,
	}
}

// DataConsistencyError reports that finalization could not place every item
// in the ranking. It is fatal to the respondent's session and must be
// reported rather than swallowed.
type DataConsistencyError struct {
	// RespondentID identifies the affected respondent, when known.
	RespondentID string

	// Unranked lists the item indices that received no rank, ascending.
	Unranked []int

	// Err is the underlying cause (ErrPrecedenceCycle or ErrUnrankedItems).
	Err error
}

// Error implements the error interface for DataConsistencyError.
func (e *DataConsistencyError) Error() string {
	return fmt.Sprintf("data consistency error: respondent=%s, unranked=%v, err=%v", e.RespondentID, e.Unranked, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *DataConsistencyError) Unwrap() error { return e.Err }

// NewDataConsistencyError creates a new DataConsistencyError.
func NewDataConsistencyError(unranked []int, err error) *DataConsistencyError {
	return &DataConsistencyError{
		Unranked: unranked,
		Err:      err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
