// Package errors provides error handling for postwatch.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Sentinel errors for the ingestion pipeline
//
// Usage:
//
//	// Wrap with context
//	if err := store.InsertJob(ctx, job); err != nil {
//	    return errors.Wrap(err, "insert job")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrValidation) {
//	    // reject without retrying
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinel errors for use across postwatch.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrValidation indicates an observation or request failed validation
	// before any transaction was opened. Never retried.
	ErrValidation = New("validation failed")

	// ErrConflictRetryExhausted indicates that every bounded retry of a
	// unique-constraint race lost. Transient: the caller may retry the
	// whole operation.
	ErrConflictRetryExhausted = New("conflict retries exhausted")

	// ErrStoreUnavailable indicates a transaction could not begin or commit
	// due to infrastructure failure rather than a logical conflict.
	ErrStoreUnavailable = New("store unavailable")

	// ErrUnauthorized indicates the request presented no credential or an
	// unrecognized one.
	ErrUnauthorized = New("unauthorized")

	// ErrForbidden indicates a recognized credential whose role does not
	// permit the requested operation.
	ErrForbidden = New("forbidden")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")
)

// IsValidation checks if an error is or wraps ErrValidation
func IsValidation(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

// IsConflictRetryExhausted checks if an error is or wraps ErrConflictRetryExhausted
func IsConflictRetryExhausted(err error) bool {
	return err != nil && Is(err, ErrConflictRetryExhausted)
}

// IsStoreUnavailable checks if an error is or wraps ErrStoreUnavailable
func IsStoreUnavailable(err error) bool {
	return err != nil && Is(err, ErrStoreUnavailable)
}

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewValidationError creates a validation error with a formatted message
func NewValidationError(format string, args ...interface{}) error {
	return Wrap(ErrValidation, Newf(format, args...).Error())
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}
