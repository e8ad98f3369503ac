// Package workflow owns the aggregate state of one order-preparation
// workflow and the coordinator that is its single writer.
package workflow

import (
	"strings"
	"time"

	"github.com/signwerk/orderprep/internal/domain/staleness"
	"github.com/signwerk/orderprep/internal/domain/step"
	"github.com/signwerk/orderprep/internal/ports"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ArtifactKind identifies a remotely-produced artifact tracked by the
// workflow.
type ArtifactKind string

const (
	// ArtifactEstimate is the accounting estimate.
	ArtifactEstimate ArtifactKind = "estimate"
	// ArtifactDocuments is the generated document set.
	ArtifactDocuments ArtifactKind = "documents"
	// ArtifactAccountingDocument is the downloaded accounting PDF.
	ArtifactAccountingDocument ArtifactKind = "accountingDocument"
	// ArtifactTasks is the production task set.
	ArtifactTasks ArtifactKind = "tasks"
)

// Artifact is the client-side record of a remotely-produced object.
// SourceHash is opaque and equality-comparable only.
type Artifact struct {
	Exists     bool
	SourceHash string
	CreatedAt  time.Time
	Identifier string
	Count      int
	URLs       []string
}

// stepState is the runtime record for one pipeline step. It is only
// ever mutated through Coordinator.apply.
type stepState struct {
	def         step.Definition
	status      step.Status
	message     string
	errMsg      string
	fieldErrors []ports.FieldError

	// suppressRefresh blocks the next automatic staleness refresh after
	// a cancelled resolution, until the operator explicitly starts the
	// step again.
	suppressRefresh bool

	// generatedThisSession is set when the operator explicitly ran the
	// step in this workflow session; the production-task staleness
	// policy reads it.
	generatedThisSession bool

	// autoSkipped distinguishes a business-rule skip (cash order) from a
	// manual operator skip in the displayed message.
	autoSkipped bool
}

// state is the aggregate root for one order's workflow. It is a cache
// of remotely-derived status, never the durable record of truth.
type state struct {
	order     ports.OrderInfo
	steps     []*stepState
	artifacts map[ArtifactKind]Artifact
}

func newState(order ports.OrderInfo, defs []step.Definition) *state {
	steps := make([]*stepState, 0, len(defs))
	for _, d := range defs {
		steps = append(steps, &stepState{def: d, status: step.StatusPending})
	}
	return &state{
		order:     order,
		steps:     steps,
		artifacts: make(map[ArtifactKind]Artifact),
	}
}

// find returns the step record for an id, or nil.
func (s *state) find(id step.ID) *stepState {
	for _, ss := range s.steps {
		if ss.def.ID() == id {
			return ss
		}
	}
	return nil
}

// runningStep returns the currently running step, or nil.
func (s *state) runningStep() *stepState {
	for _, ss := range s.steps {
		if ss.status == step.StatusRunning {
			return ss
		}
	}
	return nil
}

// statuses snapshots every step's status for the dependency resolver.
func (s *state) statuses() map[step.ID]step.Status {
	m := make(map[step.ID]step.Status, len(s.steps))
	for _, ss := range s.steps {
		m[ss.def.ID()] = ss.status
	}
	return m
}

// applyOutcome settles a staleness verdict onto a step. Regression from
// completed always routes through the ResetToPending transition;
// derived completion is a policy decision, not a step event.
func (s *state) applyOutcome(ss *stepState, out staleness.Outcome) {
	if out.SetStatus && out.Status != ss.status {
		switch out.Status {
		case step.StatusPending:
			if next, err := step.Transition(ss.def, ss.status, step.EventResetToPending); err == nil {
				ss.status = next
			}
		case step.StatusCompleted:
			ss.status = step.StatusCompleted
		}
	}
	if out.SetMessage {
		ss.message = out.Message
	}
}

// artifactKindFor maps a step to the artifact it produces. Validation
// and filing produce none.
func artifactKindFor(id step.ID) (ArtifactKind, bool) {
	switch id {
	case step.IDEstimate:
		return ArtifactEstimate, true
	case step.IDDocuments:
		return ArtifactDocuments, true
	case step.IDAccountingDocument:
		return ArtifactAccountingDocument, true
	case step.IDTasks:
		return ArtifactTasks, true
	default:
		return "", false
	}
}

var titleCaser = cases.Title(language.English)

// titleFor derives the display title of a step from its id.
func titleFor(id step.ID) string {
	return titleCaser.String(strings.ReplaceAll(id.String(), "-", " "))
}
