package rate

import "errors"

var (
	// ErrRateLimited is returned by Admit when the window budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps counter store failures.
	ErrStoreUnavailable = errors.New("rate counter store unavailable")
	// ErrInvalidRule is returned for non-positive limits or windows.
	ErrInvalidRule = errors.New("invalid rate rule")
)
