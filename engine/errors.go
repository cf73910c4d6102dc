/*
errors.go - Centralized error types for the core-share engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Validation failures - malformed or out-of-range input, reported as a
     collected list of EVERY violated constraint (not fail-fast). The engine
     performs no calculation and has no side effects when validation fails.
  2. Locked-period mutation - the one hard error. Mutating a locked Period
     indicates a programming/workflow fault in the caller, so it is raised
     immediately rather than collected.

  Calculation warnings are NOT errors; see Warning in types.go.

USAGE:
  if err := engine.ValidateHousehold(h); err != nil {
      var verrs *engine.ValidationErrors
      if errors.As(err, &verrs) {
          for _, fe := range verrs.Violations { ... }
      }
  }
*/
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the sentinel every ValidationErrors unwraps to.
	ErrValidation = errors.New("validation failed")

	// ErrPeriodLocked is returned by every mutating Period operation once
	// the period has been locked. Locking is terminal for a Period.
	ErrPeriodLocked = errors.New("period is locked")
)

// =============================================================================
// VALIDATION ERRORS - Collected, never fail-fast
// =============================================================================

// FieldError names a single violated constraint.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every violated constraint of one validation
// pass so a caller can present all problems together.
type ValidationErrors struct {
	Violations []FieldError
}

func (e *ValidationErrors) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationErrors) Unwrap() error { return ErrValidation }

// addf appends a violation with a formatted message.
func (e *ValidationErrors) addf(field, format string, args ...any) {
	e.Violations = append(e.Violations, FieldError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// orNil returns nil when no violations were collected, so callers get a
// plain nil error instead of a typed nil.
func (e *ValidationErrors) orNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
