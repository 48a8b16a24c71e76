package hiring

import "errors"

var (
	// Validation errors, raised before any lock is taken.
	ErrMissingApplicationID = errors.New("hiring: application_id is required")

	// Not found errors. A bid that belongs to another job is reported as
	// ErrApplicationNotFound as well.
	ErrJobNotFound         = errors.New("hiring: job not found")
	ErrApplicationNotFound = errors.New("hiring: application not found for this job")

	// Authorization errors.
	ErrNotJobOwner = errors.New("hiring: caller does not own the job")
	ErrSelfHire    = errors.New("hiring: owner cannot hire their own application")

	// Conflict errors.
	ErrJobAlreadyClosed = errors.New("hiring: job is already closed")

	// Dependency errors. The hire was rolled back.
	ErrNotificationFailed = errors.New("hiring: notification dispatch failed")
)
