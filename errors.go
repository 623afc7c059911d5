package marketgate

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrMissingCredential is returned when a request carries neither cookie nor bearer credential.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential is returned when the credential format or signature check fails.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrExpiredCredential is returned when the credential's hard expiry has passed.
	ErrExpiredCredential = errors.New("expired credential")
	// ErrSessionTimeout is returned by the freshness guard.
	ErrSessionTimeout = errors.New("session timeout")
	// ErrUserNotFound is returned when the credential subject has no identity record.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountDeactivated is returned for identities whose active flag is false.
	ErrAccountDeactivated = errors.New("account deactivated")
	// ErrInvalidLogin is returned for an unknown email or a wrong password.
	ErrInvalidLogin = errors.New("invalid email or password")
	// ErrInsufficientRole is returned when the identity's role is not allowed.
	ErrInsufficientRole = errors.New("insufficient role")
	// ErrNotOwner is returned when a non-admin acts on a resource owned by someone else.
	ErrNotOwner = errors.New("not owner")
	// ErrResourceNotFound is returned when an ownership lookup finds no resource.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrEmailTaken is returned by registration for an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidInput is returned for malformed registration or admin requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimitExceeded is matched by every *RateLimitError.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrStoreUnavailable is returned when the identity store or owner lookup fails.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineMisconfigured is returned when an operation needs a dependency that was not provided.
	ErrEngineMisconfigured = errors.New("engine misconfigured")
)

// RateLimitError is returned when a client exceeded its window budget.
type RateLimitError struct {
	Limit      int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %ds", ErrRateLimitExceeded, e.RetryAfterSeconds())
}

// Unwrap lets errors.Is match ErrRateLimitExceeded.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}

// RetryAfterSeconds is the whole number of seconds until the window resets.
func (e *RateLimitError) RetryAfterSeconds() int {
	return int(e.RetryAfter / time.Second)
}

type errorKind struct {
	err     error
	status  int
	message string
}

// Order matters: the first match wins.
var errorKinds = []errorKind{
	{ErrMissingCredential, http.StatusUnauthorized, "Authentication required"},
	{ErrInvalidCredential, http.StatusUnauthorized, "Invalid authentication token"},
	{ErrExpiredCredential, http.StatusUnauthorized, "Authentication token expired"},
	{ErrSessionTimeout, http.StatusUnauthorized, "Session timed out, please log in again"},
	{ErrUserNotFound, http.StatusUnauthorized, "User not found"},
	{ErrAccountDeactivated, http.StatusUnauthorized, "Account has been deactivated"},
	{ErrInvalidLogin, http.StatusUnauthorized, "Invalid email or password"},
	{ErrInsufficientRole, http.StatusForbidden, "Insufficient permissions"},
	{ErrNotOwner, http.StatusForbidden, "You do not have access to this resource"},
	{ErrResourceNotFound, http.StatusNotFound, "Resource not found"},
	{ErrEmailTaken, http.StatusConflict, "Email already registered"},
	{ErrInvalidInput, http.StatusBadRequest, "Invalid request"},
	{ErrRateLimitExceeded, http.StatusTooManyRequests, "Too many requests, please try again later"},
	{ErrStoreUnavailable, http.StatusServiceUnavailable, "Service temporarily unavailable"},
}

// StatusCode maps err to the HTTP status of its kind. Unknown errors map to 500.
func StatusCode(err error) int {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage maps err to the message shown to clients. It never exposes
// the wrapped cause.
func PublicMessage(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.message
		}
	}
	return "Internal server error"
}
