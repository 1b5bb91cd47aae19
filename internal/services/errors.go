package services

import "errors"

// Sentinel errors the HTTP entry points map onto status codes.
var (
	// ErrInvalidArgument marks a caller error in the request payload (400).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthenticated marks a rejected caller before any work begins (401).
	ErrUnauthenticated = errors.New("unauthenticated")
)
