package domain

import "errors"

// Sentinel errors shared across the service. Handlers map them onto HTTP
// status codes; everything else is treated as internal.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalid      = errors.New("invalid input")
)
