// Package common defines shared constants and sentinel errors used across
// the auditor client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Authentication errors surfaced by the session manager.
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrDuplicateUsername = errors.New("duplicate username")

	// ErrConnection is the catch-all for unexpected store/IO failures.
	// The session manager never lets anything else cross its boundary.
	ErrConnection = errors.New("connection error")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")
)
