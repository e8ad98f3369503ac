package workflow

import (
	"github.com/signwerk/orderprep/internal/domain/step"
	"github.com/signwerk/orderprep/internal/ports"
)

// StepView is the read-only derived state the presentation layer
// consumes for one step. Error is non-empty iff Status is failed.
type StepView struct {
	ID          step.ID
	Title       string
	Order       int
	Kind        step.Kind
	Status      step.Status
	Message     string
	Error       string
	FieldErrors []ports.FieldError
	Enabled     bool
	Skippable   bool
}

// ResolutionView is the read-only state of the exception sub-workflow.
type ResolutionView struct {
	State ResolutionState
	Items []ports.AmbiguousItem
}

// Open reports whether operator input is being awaited.
func (v ResolutionView) Open() bool {
	return v.State == ResolutionOpen || v.State == ResolutionResolving
}

func (s *state) view(ss *stepState) StepView {
	fieldErrors := make([]ports.FieldError, len(ss.fieldErrors))
	copy(fieldErrors, ss.fieldErrors)
	if len(fieldErrors) == 0 {
		fieldErrors = nil
	}

	return StepView{
		ID:          ss.def.ID(),
		Title:       titleFor(ss.def.ID()),
		Order:       ss.def.Order(),
		Kind:        ss.def.Kind(),
		Status:      ss.status,
		Message:     ss.message,
		Error:       ss.errMsg,
		FieldErrors: fieldErrors,
		Enabled:     CanRun(ss.def, s.statuses()),
		Skippable:   ss.def.Skippable(),
	}
}

func (s *state) views() []StepView {
	out := make([]StepView, 0, len(s.steps))
	for _, ss := range s.steps {
		out = append(out, s.view(ss))
	}
	return out
}
