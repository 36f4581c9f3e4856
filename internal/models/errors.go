package models

import "errors"

// Sentinel errors returned by the progression engine. Callers are expected to
// match them with errors.Is.
var (
	// ErrNotFound indicates a referenced user, lesson, course or achievement
	// does not exist. No partial write happens.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyCompleted indicates the idempotence guard triggered. It is a
	// benign outcome, not a failure, but callers need to distinguish it from a
	// fresh completion.
	ErrAlreadyCompleted = errors.New("already completed")

	// ErrInvariantViolation indicates a cached aggregate diverged from the
	// ledger. It is fatal for the current operation and must never be silently
	// auto-corrected.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrTransactionFailed wraps storage failures during a multi-step reward
	// sequence. All steps are rolled back, so retrying is safe.
	ErrTransactionFailed = errors.New("transaction failed")
)
