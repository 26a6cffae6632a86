// Package errors provides error handling for jobrake.
//
// This package re-exports github.com/cockroachdb/errors, providing stack
// traces, error wrapping with context, and structured error details, plus
// the sentinel errors used across the ingestion pipeline.
//
// Usage:
//
//	if err := store.Insert(raw); err != nil {
//	    return errors.Wrap(err, "failed to persist raw job")
//	}
//
//	if errors.Is(err, errors.ErrConflict) {
//	    // duplicate checksum - expected, skip
//	}
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
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	GetAllDetails  = crdb.GetAllDetails
	FlattenDetails = crdb.FlattenDetails
)

// Error inspection
var (
	Is     = crdb.Is
	IsAny  = crdb.IsAny
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// Sentinel errors for use across jobrake.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = New("not found")

	// ErrConflict indicates a uniqueness conflict (duplicate checksum or
	// duplicate published source URL)
	ErrConflict = New("resource conflict")

	// ErrInvalidConfig indicates a source configuration that cannot be
	// executed (missing selectors, missing feed URL). Not retryable.
	ErrInvalidConfig = New("invalid source configuration")

	// ErrUnsupported indicates a source kind with no adapter (API mode)
	ErrUnsupported = New("source kind not supported")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = New("operation timed out")

	// ErrCancelled indicates work was skipped because cancellation was
	// recorded on the owning scrape job
	ErrCancelled = New("cancelled")
)

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsConflict checks if an error is or wraps ErrConflict.
func IsConflict(err error) bool {
	return err != nil && Is(err, ErrConflict)
}

// IsInvalidConfig checks if an error is or wraps ErrInvalidConfig.
func IsInvalidConfig(err error) bool {
	return err != nil && Is(err, ErrInvalidConfig)
}

// NewNotFound creates a not-found error with a formatted message.
func NewNotFound(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidConfig creates an invalid-configuration error with a formatted message.
func NewInvalidConfig(format string, args ...interface{}) error {
	return Wrap(ErrInvalidConfig, Newf(format, args...).Error())
}
