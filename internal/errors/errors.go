package errors

import (
	"errors"
)

// Sentinel errors shared by every layer. Callers wrap them with context and test with errors.Is.
var (
	// ErrDuplicateEvent - inbound chat event already processed (dropped silently)
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrPermissionDenied - platform or vendor rejected our credentials
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput - caller supplied arguments that do not satisfy the contract
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - unknown tool, restaurant, order or user
	ErrNotFound = errors.New("not found")

	// ErrConflict - concurrent write lost, safe to retry
	ErrConflict = errors.New("conflict")

	// ErrTransient - network, timeout or rate limit failure of a collaborator
	ErrTransient = errors.New("transient error")

	// ErrInvalidModelOutput - model produced unparseable tool arguments or leaked call syntax
	ErrInvalidModelOutput = errors.New("invalid model output")

	// ErrInternal - anything else; never shown to the user verbatim
	ErrInternal = errors.New("internal error")
)
