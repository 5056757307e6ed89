package services

import "errors"

// Common service errors. Validation and state-conflict errors are expected
// and returned to the caller; infrastructure errors are wrapped and
// propagated untouched.
var (
	ErrNotFound        = errors.New("record not found")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidState    = errors.New("invalid state transition")
	ErrReconcileNeeded = errors.New("ledger out of sync with settled payments")
	ErrHasChildren     = errors.New("record has dependent children")
	ErrUnauthorized    = errors.New("unauthorized")
)
