package step

import "fmt"

// Event is a status transition trigger for a single step.
type Event string

const (
	// EventStart moves a pending or failed step to running.
	EventStart Event = "start"
	// EventSucceed settles a running step as completed.
	EventSucceed Event = "succeed"
	// EventFail settles a running step as failed.
	EventFail Event = "fail"
	// EventSkip bypasses a pending step of a skippable kind.
	EventSkip Event = "skip"
	// EventUndoSkip returns a skipped step to pending.
	EventUndoSkip Event = "undoSkip"
	// EventResetToPending invalidates a completed step whose artifact went
	// stale, or releases a running step whose resolution was cancelled. It
	// is only ever raised by policy, never by direct user action.
	EventResetToPending Event = "resetToPending"
)

// IllegalTransitionError reports an event that is not legal from the
// step's current status.
type IllegalTransitionError struct {
	StepID ID
	From   Status
	Event  Event
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("step %s: illegal transition %s from %s", e.StepID, e.Event, e.From)
}

// Transition computes the status that results from applying an event to
// a step with the given current status. The definition supplies the
// skippability rule; everything else depends only on the current status.
func Transition(def Definition, current Status, ev Event) (Status, error) {
	switch ev {
	case EventStart:
		if current == StatusPending || current == StatusFailed {
			return StatusRunning, nil
		}
	case EventSucceed:
		if current == StatusRunning {
			return StatusCompleted, nil
		}
	case EventFail:
		if current == StatusRunning {
			return StatusFailed, nil
		}
	case EventSkip:
		if current == StatusPending && def.Skippable() {
			return StatusSkipped, nil
		}
	case EventUndoSkip:
		if current == StatusSkipped {
			return StatusPending, nil
		}
	case EventResetToPending:
		if current == StatusCompleted || current == StatusRunning {
			return StatusPending, nil
		}
	}
	return current, &IllegalTransitionError{StepID: def.ID(), From: current, Event: ev}
}
