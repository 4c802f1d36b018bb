package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when an operation runs before Init
	// has established a session.
	ErrNotInitialized = errors.New("agent not initialized")

	// ErrNoTarget is returned when an import runs without a destination
	// product selected.
	ErrNoTarget = errors.New("no target product selected")

	// ErrNoReviews is returned when an import runs with no reviews loaded.
	ErrNoReviews = errors.New("no reviews loaded")

	// ErrImportInFlight is returned when a bulk import is requested while
	// another one is still pending.
	ErrImportInFlight = errors.New("bulk import already in progress")

	// ErrNoMoreReviews is returned by Next when the cursor is at the end of
	// the filtered view and the backend reports no further pages.
	ErrNoMoreReviews = errors.New("no more reviews")
)

// EmptySubsetError reports a bulk import whose subset matched nothing.
type EmptySubsetError struct {
	Kind SubsetKind
}

func (e *EmptySubsetError) Error() string {
	return fmt.Sprintf("no reviews match subset %q", e.Kind)
}

// ConfirmationRequiredError reports that the requested subset contains
// low-rated reviews and the caller must confirm before the import runs.
type ConfirmationRequiredError struct {
	NegativeCount int
	SubsetSize    int
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("%d of %d reviews have 2 stars or less, confirmation required", e.NegativeCount, e.SubsetSize)
}
