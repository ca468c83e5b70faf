package auth

import "errors"

// Sentinel errors for token validation.
var (
	// ErrMissingCredentials indicates no token was provided.
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// ErrTokenExpired indicates the token's exp claim is in the past.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenMalformed indicates the token could not be parsed.
	ErrTokenMalformed = errors.New("auth: token malformed")

	// ErrInvalidCredentials indicates the token failed validation.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)
