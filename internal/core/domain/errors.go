package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown catalog format or state driver.
	ErrUnsupportedType = errors.New("unsupported type")

	// Configuration Errors.

	// ErrConfig indicates a missing or invalid setting.
	// Configuration errors are fatal at startup and never raised mid-pipeline.
	ErrConfig = errors.New("invalid configuration")

	// ErrEmptyCatalog indicates the label catalog has no usable labels.
	ErrEmptyCatalog = errors.New("label catalog is empty")

	// ErrDuplicateLabel indicates two catalog rows share a label.
	ErrDuplicateLabel = errors.New("duplicate catalog label")

	// Authentication Errors.

	// ErrAuthRequired indicates no stored credentials are available.
	// Run `driveroute auth login` to complete the consent flow.
	ErrAuthRequired = errors.New("authentication required")

	// ErrTokenRefreshFailed indicates token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// Pipeline Errors.

	// ErrNoActiveChannel indicates no watch channel is persisted.
	ErrNoActiveChannel = errors.New("no active watch channel")

	// ErrClassifierUnavailable indicates the model classifier is not configured.
	// Classification degrades to the keyword heuristic.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrInvalidModelResponse indicates the model answered with something
	// that does not satisfy the label schema.
	ErrInvalidModelResponse = errors.New("invalid model response")

	// ErrCursorExpired indicates the provider no longer accepts the stored cursor.
	ErrCursorExpired = errors.New("change cursor expired")

	// ErrQueueClosed indicates the dispatcher has stopped accepting work.
	ErrQueueClosed = errors.New("dispatch queue closed")
)
