package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRegistrationFailed = errors.New("registration failed")
	ErrAuthInProgress     = errors.New("another sign-in is already in progress")
	ErrNotAuthenticated   = errors.New("not signed in")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
)

// User-facing messages stored in Session.Error.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgRegistrationFailed = "Failed to register"
	MsgSessionNotSaved    = "Could not save session"
)
