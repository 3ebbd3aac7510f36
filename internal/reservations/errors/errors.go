package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrDuplicateID = errors.New("reservation ID already exists")

	// ErrStatusMismatch means a conditional write found the record in a
	// different status than the caller expected.
	ErrStatusMismatch = errors.New("reservation status changed concurrently")

	ErrLockTimeout = errors.New("timed out waiting for slot lock")
)
