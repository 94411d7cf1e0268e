package service

import (
	"errors"
	"fmt"

	"github.com/straye-as/proposal-api/internal/pricing"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails. It is always
	// returned before any read or write happens.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersistence is returned when totals were computed but could not be stored
	ErrPersistence = errors.New("persistence failure")

	// ErrForbidden is returned when the actor may not access the proposal
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a change would break a configuration invariant
	ErrConflict = errors.New("resource conflict")

	// ErrProposalNotFound is returned when a proposal id does not resolve
	ErrProposalNotFound = fmt.Errorf("proposal: %w", ErrNotFound)

	// ErrTierNotFound is returned when a volume discount tier id does not resolve
	ErrTierNotFound = fmt.Errorf("volume discount tier: %w", ErrNotFound)
)

// PersistenceError carries totals that were computed successfully but whose
// write (totals update or audit entry) failed and was rolled back.
type PersistenceError struct {
	Totals *pricing.Totals
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%v: %v", ErrPersistence, e.Err)
}

// Unwrap exposes both ErrPersistence and the underlying cause
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
