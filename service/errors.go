package service

import "errors"

// Request-terminal error taxonomy. Handlers map these onto HTTP statuses;
// anything unwrapped falls through as a 500.
var (
	ErrValidation   = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid session state")
	ErrRateLimited  = errors.New("rate limited")

	// ErrUnrecognizedEvent marks webhook payloads whose event tag this
	// service does not know. The handler still acknowledges them with 200
	// so the relay does not retry.
	ErrUnrecognizedEvent = errors.New("unrecognized webhook event")
)
