/*
errors.go - Error types for the period and metrics engine

PURPOSE:
  All engine errors in one place. Sentinels are matched with errors.Is;
  structured errors carry the context a caller needs to re-prompt or
  offer a creation path, and unwrap to their sentinel.

ERROR CATEGORIES:
  1. Validation - malformed amounts, dates, counts (caller re-prompts)
  2. Conflict   - overlapping periods, illegal status transitions, edits to
                  closed periods
  3. Not found  - missing pharmacy/period/metrics/log ("not yet created")

  Division by zero in KPI arithmetic is NOT an error. See metrics.go.

SEE ALSO:
  - api/handlers.go: Maps categories to HTTP status codes
*/
package finance

import (
	"errors"
	"fmt"

	"github.com/warp/pharmacy-ledger/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrOverlap is returned when a new period intersects an existing one.
	ErrOverlap = errors.New("period overlaps an existing period")

	// ErrNotFound is returned when a lookup finds nothing.
	ErrNotFound = errors.New("not found")

	// ErrPeriodClosed is returned when raw inputs of a closed period are edited.
	ErrPeriodClosed = errors.New("period is closed")

	// ErrInvalidTransition is returned for a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStep is returned when a simulator step is not one of the allowed sizes.
	ErrInvalidStep = errors.New("invalid simulation step")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// OverlapError names the period that blocked creation.
type OverlapError struct {
	PharmacyID          PharmacyID
	Start               calendar.Date
	End                 calendar.Date
	ConflictingPeriodID PeriodID
	ConflictingRange    calendar.Range
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("period [%s, %s] for pharmacy %d overlaps period %d %s",
		e.Start, e.End, e.PharmacyID, e.ConflictingPeriodID, e.ConflictingRange)
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlap
}

// NotFoundError names what was looked up.
type NotFoundError struct {
	Kind string // pharmacy, period, metrics, daily_log
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// TransitionError records a rejected status change.
type TransitionError struct {
	PeriodID PeriodID
	From     PeriodStatus
	To       PeriodStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("period %d cannot move from %s to %s", e.PeriodID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func notFound(kind string, key any) error {
	return &NotFoundError{Kind: kind, Key: fmt.Sprint(key)}
}

func invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the request clashes with current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOverlap) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrPeriodClosed)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidStep) ||
		errors.Is(err, calendar.ErrInvalidDate) ||
		errors.Is(err, calendar.ErrOutOfRange)
}
