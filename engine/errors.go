/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place. The taxonomy is deliberately small:

  1. Invalid input        - negative areas, malformed rule parameters.
                            Rejected before any computation.
  2. Missing attribute    - a rule references a producer attribute the caller
                            did not supply. Surfaced, never treated as
                            "does not match".
  3. Inconsistent area    - leased area exceeds the property total, or the
                            total is zero while leases exist. Halts
                            apportionment instead of dividing by zero.
  4. Not found            - a referenced entity is absent from the registry.

  Everything else - a rule not matching, a zero benefit, an exhausted period
  quota - is a normal outcome carried in CalculationResult fields, so the UI
  can render messages without exception handling.

USAGE:
  if errors.Is(err, engine.ErrMissingAttribute) {
      var ma *engine.MissingAttributeError
      errors.As(err, &ma)
      // ma.Attribute names what the evaluation context lacked
  }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for inputs rejected before computation:
	// negative areas, between-conditions with min >= max, unknown operators.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingAttribute is returned when a rule condition references a
	// producer attribute not present in the evaluation context.
	ErrMissingAttribute = errors.New("missing producer attribute")

	// ErrInconsistentAreaData is returned when property/lease areas cannot
	// support apportionment (zero total with leases, leased > total).
	ErrInconsistentAreaData = errors.New("inconsistent area data")

	// ErrPersonNotFound is returned when a referenced person doesn't exist.
	ErrPersonNotFound = errors.New("person not found")

	// ErrPropertyNotFound is returned when a referenced property doesn't exist.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrProgramNotFound is returned when a referenced program doesn't exist.
	ErrProgramNotFound = errors.New("program not found")

	// ErrTxStoreRequired is returned when evaluate-and-reserve is invoked
	// against a registry without transaction support.
	ErrTxStoreRequired = errors.New("operation requires a transactional registry")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidInputError names the offending field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// MissingAttributeError identifies which attribute the context lacked, so the
// caller can distinguish "does not qualify" from "cannot determine".
type MissingAttributeError struct {
	RuleID    RuleID
	Attribute AttributeKey
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("rule %s: producer attribute %q not supplied", e.RuleID, e.Attribute)
}

func (e *MissingAttributeError) Unwrap() error { return ErrMissingAttribute }

// InconsistentAreaDataError reports the property whose area data blocked
// apportionment.
type InconsistentAreaDataError struct {
	PropertyID PropertyID
	TotalArea  Quantity
	LeasedArea Quantity
	Reason     string
}

func (e *InconsistentAreaDataError) Error() string {
	return fmt.Sprintf("property %s: %s (total %s, leased %s)",
		e.PropertyID, e.Reason, e.TotalArea, e.LeasedArea)
}

func (e *InconsistentAreaDataError) Unwrap() error { return ErrInconsistentAreaData }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMissingAttribute) ||
		errors.Is(err, ErrInconsistentAreaData)
}

// IsNotFound reports whether the error indicates a missing registry entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPersonNotFound) ||
		errors.Is(err, ErrPropertyNotFound) ||
		errors.Is(err, ErrProgramNotFound)
}
