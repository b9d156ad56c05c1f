package rate

import "errors"

var (
	// ErrRateLimited is returned when the client has exhausted its window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable is returned when the counter store could not be read or written.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
