package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrMalformedResponse = errors.New("malformed server response")

	// Game errors
	ErrPlayInProgress = errors.New("a play is already in progress")

	// Admin errors
	ErrAdminRequired      = errors.New("admin role required")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidDraft       = errors.New("invalid user draft")
	ErrDeleteNotConfirmed = errors.New("delete requires explicit confirmation")
	ErrNoSelection        = errors.New("no user details selected")
)
