package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// Collection and analysis failures
var (
	// ErrTransientFetch marks a page fetch that may succeed on retry
	// (network failure, 5xx, 429).
	ErrTransientFetch = errors.New("transient fetch failure")
	// ErrParse marks a page that could not be decoded. Terminal for a run.
	ErrParse = errors.New("parse failure")
	// ErrInsufficientData means the topic engine declined to fit a model.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrModelFit wraps vectorization and model fitting failures.
	ErrModelFit = errors.New("model fit failure")
	// ErrIdentity is returned when a tracked run has no actor.
	ErrIdentity = errors.New("missing actor identity")
)
