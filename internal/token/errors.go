package token

import "errors"

var (
	// ErrSigning means the manager is missing a secret or TTL. It is a
	// deployment problem and should surface at startup.
	ErrSigning = errors.New("token signing misconfigured")

	// ErrInvalidToken covers bad signatures, malformed input, expiry and
	// wrong token type alike.
	ErrInvalidToken = errors.New("invalid token")
)
