package usecase

import (
	"context"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrInvalidInput = crerr.New("invalid input")
	ErrNotFound     = crerr.New("resource not found")

	// ErrAborted marks an operation superseded by a newer request for the
	// same key. Expected and silent; never surfaced as a user-visible error.
	ErrAborted = crerr.New("operation superseded")

	// ErrEntityFetch marks a failure scoped to a single match or player. It
	// is recorded on that entity's store entry and never propagates to the
	// owning team.
	ErrEntityFetch = crerr.New("entity fetch failed")

	// ErrDuplicateOverride is returned synchronously, before any mutation,
	// when a manual match/player id already exists for the team.
	ErrDuplicateOverride = crerr.New("duplicate manual override")

	// ErrDependencyUnavailable marks an upstream provider that is down or
	// shed by its circuit breaker.
	ErrDependencyUnavailable = crerr.New("dependency unavailable")
)

// IsAborted folds context cancellation into the supersession taxonomy.
func IsAborted(err error) bool {
	return crerr.IsAny(err, ErrAborted, context.Canceled, context.DeadlineExceeded)
}
