// Package errors holds the sentinel errors shared by the server and the client.
// Callers branch on them with errors.Is; wrapping keeps the cause attached.
package errors

import "errors"

var (
	// Credential store errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateUser      = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidShape       = errors.New("progress must hold 5 scores between 0 and 100")
	ErrPersistenceFailure = errors.New("failed to persist user store")

	// Transport errors
	ErrTransportUnavailable = errors.New("server unreachable")
	ErrServer               = errors.New("server error")

	// Client session errors
	ErrNoSession             = errors.New("no active session")
	ErrNoCache               = errors.New("no cached user found, please try again when online")
	ErrCacheIdentityMismatch = errors.New("cached user does not match entered username, please log in when online")
)
