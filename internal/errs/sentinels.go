// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across the API client and view layers.
var (
	// ErrForbidden indicates the server denied authorization for the request.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized indicates missing or rejected credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a request body rejected before it was sent.
	ErrValidation = errors.New("validation failed")
)
