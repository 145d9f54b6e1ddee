/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Engine packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Malformed or missing input
  2. Business rule errors - Insufficient stock, already-voided transactions
  3. Store errors - Persistence failures

USAGE:
  if errors.Is(err, ledger.ErrInsufficientStock) {
      var stockErr *ledger.InsufficientStockError
      errors.As(err, &stockErr)
      // stockErr.Shortfalls enumerates every deficient product
  }

SEE ALSO:
  - recorder.go: Returns InsufficientStockError from batch application
  - api/handlers.go: Maps these to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock is returned when a movement would drive a stock
	// quantity negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNotFound is returned for unknown products, locations, processes,
	// or transactions.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyVoided is returned when reversing a transaction that has
	// already been reversed.
	ErrAlreadyVoided = errors.New("transaction already voided")

	// ErrPersistence is returned when the storage layer fails.
	ErrPersistence = errors.New("persistence failure")

	// ErrPartialApplication indicates a batch was partially applied. This is
	// unreachable if store atomicity holds; any occurrence is a fatal
	// consistency bug, not a recoverable case.
	ErrPartialApplication = errors.New("partial batch application detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// Shortfall describes one deficient product in an insufficient-stock failure.
type Shortfall struct {
	ProductID  ProductID
	Product    string
	Stage      Stage
	LocationID *LocationID
	Location   string
	Required   int64
	Available  int64
}

func (s Shortfall) String() string {
	name := s.Product
	if s.Stage != "" {
		name = fmt.Sprintf("%s (%s)", s.Product, stageLabel(s.Stage))
	}
	if s.Location != "" {
		name = fmt.Sprintf("%s at %s", name, s.Location)
	}
	return fmt.Sprintf("%s: required %d, available %d", name, s.Required, s.Available)
}

// InsufficientStockError enumerates every deficient resource. Production
// collects all shortfalls before failing; sales carry only the first
// violation because a sale aborts fail-fast.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func stageLabel(s Stage) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s)[:1]) + string(s)[1:]
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = s.String()
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// NotFoundError identifies which referent was missing.
type NotFoundError struct {
	Kind string // "product", "location", "process", "transaction"
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Ref)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AlreadyVoidedError carries the transaction that was already reversed.
type AlreadyVoidedError struct {
	Kind TransactionKind
	ID   TransactionID
}

func (e *AlreadyVoidedError) Error() string {
	return fmt.Sprintf("%s %s is already voided", e.Kind, e.ID)
}

func (e *AlreadyVoidedError) Unwrap() error { return ErrAlreadyVoided }

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input or
// a business rule rejection, as opposed to a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrAlreadyVoided)
}

// IsNotFound returns true if the error indicates a missing referent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
