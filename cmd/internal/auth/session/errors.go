package session

import "errors"

var (
	// ErrInvalidToken is returned when a token fails verification for any
	// reason: bad signature, malformed payload, or expiry in the past.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
