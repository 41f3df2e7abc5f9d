package domain

import "errors"

// Authentication errors.
var (
	ErrUnauthorized    = errors.New("authorization required")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrTokenDecode     = errors.New("token could not be decoded")
)

// Remote service errors.
var (
	ErrServiceUnavailable = errors.New("movie service unavailable")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// Input errors.
var (
	ErrInvalidInput = errors.New("invalid input")
)

// GenericFailureMessage is shown when the service gives no structured error body.
const GenericFailureMessage = "Something went wrong. Please try again."
