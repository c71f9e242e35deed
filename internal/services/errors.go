// Package services defines the business logic for surveys, board posts,
// interactions, and admin operations. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrPostNotFound indicates that the requested post does not exist or is
	// not publicly visible.
	ErrPostNotFound = errors.New("post not found")

	// ErrBadPassword is returned when a submission or admin password does not
	// match the configured secret.
	ErrBadPassword = errors.New("invalid password")

	// ErrBadCredentials is returned when a username/password login fails.
	ErrBadCredentials = errors.New("invalid credentials")

	// ErrSecretUnset is returned when a guarded operation is attempted but the
	// corresponding secret was never configured. Mapped to a server error, not
	// an authentication failure: the deployment is broken, not the caller.
	ErrSecretUnset = errors.New("admin secret not configured")

	// ErrInvalidStatus is returned when a moderation decision is not one of
	// approved, rejected, or deleted.
	ErrInvalidStatus = errors.New("invalid moderation status")

	// ErrInvalidInteraction is returned when an interaction type is not like
	// or dislike, or the caller identity is missing.
	ErrInvalidInteraction = errors.New("invalid interaction")
)

// ValidationError carries the user-facing Arabic message for a rejected
// input. Handlers return it verbatim with a 400 status.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
