package task

import "errors"

var (
	// ErrTaskNotFound is returned when the store holds no rows for a task URI.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUnknownOperation is returned when a task's operation has no registered handler.
	ErrUnknownOperation = errors.New("unknown task operation")

	// ErrInputNotFound is returned when a task's input container holds no annotation.
	ErrInputNotFound = errors.New("task input not found")

	// ErrNotClaimed is returned when another worker moved the task out of SCHEDULED first.
	ErrNotClaimed = errors.New("task not claimed")

	// ErrClaimUnverified is returned when the claim update was accepted but
	// reading back the owner failed. The task may be BUSY under this worker.
	ErrClaimUnverified = errors.New("task claim unverified")
)
