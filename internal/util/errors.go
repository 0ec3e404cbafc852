package util

import "errors"

// Sentinel errors shared across services. Handlers map these to HTTP status
// codes in one place; services wrap them with fmt.Errorf("...: %w", ...).
var (
	// ErrValidation marks bad input shape or values (400).
	ErrValidation = errors.New("validation failed")

	// ErrAuth marks missing or invalid credentials (401).
	ErrAuth = errors.New("authentication failed")

	// ErrForbidden marks an authenticated caller without the required role (403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks an unknown id or tx_ref scoped to the requester (404).
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a uniqueness-constraint violation (409).
	ErrConflict = errors.New("already exists")

	// ErrProvider marks a non-2xx or malformed payment-provider response (500).
	ErrProvider = errors.New("payment provider error")

	// ErrSignature marks a webhook that failed authenticity verification (400).
	ErrSignature = errors.New("invalid webhook signature")
)
