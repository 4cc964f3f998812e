package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates the delta configuration fails validation.
	// Raised synchronously at construction time, never mid-session.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrRefreshInProgress indicates a refresh is already running for a path.
	ErrRefreshInProgress = errors.New("refresh in progress")

	// Detection Errors.

	// ErrDetection indicates fingerprinting or state comparison failed on
	// malformed input. Recorded in the session error log; not retried.
	ErrDetection = errors.New("change detection failed")

	// Processing Errors.

	// ErrApply indicates an external pipeline call failed while applying a
	// change group. Aborts the session and is the primary rollback trigger.
	ErrApply = errors.New("pipeline apply failed")

	// ErrTimeout indicates a pipeline call exceeded the processing timeout.
	// Treated as a failure, never a silent skip.
	ErrTimeout = errors.New("processing timed out")

	// ErrLockTimeout indicates the per-document lock could not be acquired
	// within the configured bound. Retryable by the caller.
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// Session Errors.

	// ErrSessionFinalised indicates an attempted mutation of a session that
	// has already reached a terminal status.
	ErrSessionFinalised = errors.New("session already finalised")

	// ErrInvalidTransition indicates a session status transition that would
	// violate monotonic ordering.
	ErrInvalidTransition = errors.New("invalid session status transition")

	// ErrRollbackUnavailable indicates a rollback was requested for a
	// session that holds no rollback payload.
	ErrRollbackUnavailable = errors.New("no rollback point available")
)
