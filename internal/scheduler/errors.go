package scheduler

import "errors"

// Sentinel errors for the scheduling engine. Check with errors.Is.
var (
	// ErrInvalidRating is returned for ratings outside 1..4. The submission
	// is rejected before any state mutation; retrying without correcting the
	// input will fail again.
	ErrInvalidRating = errors.New("scheduler: invalid rating")

	// ErrItemNotFound is returned when no scheduling state exists for the
	// requested user/item pair, including archived items.
	ErrItemNotFound = errors.New("scheduler: item not found")

	// ErrLockTimeout is returned when the per-item lock could not be
	// acquired before the context deadline. Retryable with backoff.
	ErrLockTimeout = errors.New("scheduler: lock acquisition timed out")

	// ErrStorage wraps persistence failures during load, save or append.
	// Retryable, but the caller must not assume partial success.
	ErrStorage = errors.New("scheduler: storage failure")
)
