package workflow

import "errors"

// Local gating errors. None of these mutate step status; they block the
// attempt before the remote system is reached.
var (
	// ErrUnknownStep means the step id is not part of this workflow.
	ErrUnknownStep = errors.New("unknown step")

	// ErrDependencyNotSatisfied means an upstream step is not yet
	// completed or skipped.
	ErrDependencyNotSatisfied = errors.New("step dependencies not satisfied")

	// ErrStepBusy means another step is already running; business steps
	// never run concurrently within one workflow.
	ErrStepBusy = errors.New("another step is already running")

	// ErrResolutionOpen means the task step is parked awaiting operator
	// resolutions and cannot be retriggered until resolved or cancelled.
	ErrResolutionOpen = errors.New("task resolution in progress")

	// ErrResolutionNotOpen means there are no ambiguous items awaiting
	// operator input.
	ErrResolutionNotOpen = errors.New("no task resolution in progress")

	// ErrNotOpen means the coordinator has no workflow loaded.
	ErrNotOpen = errors.New("workflow not opened")
)
