package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Catalog errors
	ErrPartNotFound = errors.New("part not found in catalog")

	// Resolution errors
	ErrResolutionOpen  = errors.New("a resolution is already open")
	ErrNoResolution    = errors.New("no resolution is open")
	ErrStaleResolution = errors.New("resolution was cancelled or superseded")
	ErrWrongState      = errors.New("resolution is not in the required state")

	// Validation errors
	ErrInvalidQuantity    = errors.New("quantity must be a positive integer")
	ErrEmptyDescription   = errors.New("manual entry requires a description")
	ErrMissingActor       = errors.New("transaction requires a technician")
	ErrMissingDestination = errors.New("transaction requires a destination building")

	// Commit errors
	ErrEmptyCart      = errors.New("cart is empty")
	ErrCommitInFlight = errors.New("a commit is already in progress")
)
