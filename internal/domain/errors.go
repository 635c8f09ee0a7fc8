package domain

import "errors"

// Application error classes. Callers wrap them with context and classify with errors.Is.
var (
	// ErrValidation is returned for bad or missing caller input.
	ErrValidation = errors.New("validation error")

	// ErrSourceUnavailable is returned when the message source cannot authenticate or be reached.
	ErrSourceUnavailable = errors.New("message source unavailable")

	// ErrStoreUnavailable is returned when the persistent store cannot be reached or queried.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotConfigured is returned when required configuration is missing.
	ErrNotConfigured = errors.New("not configured")
)
