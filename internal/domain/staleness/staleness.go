// Package staleness decides how artifact freshness affects a step's
// resting status. Each step kind carries its own policy: the estimate
// and document steps gate completion on freshness, the production task
// step never regresses, and validation and filing opt out entirely.
package staleness

import "github.com/signwerk/orderprep/internal/domain/step"

// Probe is the freshness signal reported by the remote staleness check
// for one artifact.
type Probe struct {
	Exists      bool
	SourceHash  string
	CurrentHash string
	TaskCount   int
}

// Fresh reports whether the artifact exists and was produced from the
// order data as it currently stands.
func (p Probe) Fresh() bool {
	return p.Exists && p.SourceHash == p.CurrentHash
}

// Stale reports whether the artifact exists but was produced from
// older order data.
func (p Probe) Stale() bool {
	return p.Exists && p.SourceHash != p.CurrentHash
}

// Outcome is the policy's verdict. Status and Message are only
// meaningful when their Set flag is true; an all-false Outcome means
// the step is left untouched.
type Outcome struct {
	Status     step.Status
	SetStatus  bool
	Message    string
	SetMessage bool
}

// Unchanged returns the leave-everything-alone outcome.
func Unchanged() Outcome {
	return Outcome{}
}

func statusAndMessage(status step.Status, message string) Outcome {
	return Outcome{Status: status, SetStatus: true, Message: message, SetMessage: true}
}

func messageOnly(message string) Outcome {
	return Outcome{Message: message, SetMessage: true}
}
