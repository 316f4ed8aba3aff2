package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotInitialized indicates the database was used before Initialize completed
	ErrNotInitialized = errors.New("database not initialized")

	// ErrAcquireTimeout indicates no pooled connection freed up in time
	ErrAcquireTimeout = errors.New("connection acquire timeout")

	// ErrNotFound indicates a required record was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
