package workflow

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
	"github.com/signwerk/orderprep/internal/ports"
)

// ResolutionState is the exception sub-workflow's lifecycle state.
type ResolutionState string

const (
	// ResolutionClosed means no ambiguous items are pending.
	ResolutionClosed ResolutionState = "closed"
	// ResolutionOpen means ambiguous items await operator input; the
	// task step stays running the whole time.
	ResolutionOpen ResolutionState = "open"
	// ResolutionResolving means operator resolutions are being submitted.
	ResolutionResolving ResolutionState = "resolving"
)

// Event types for the resolution state machine.
const (
	eventAmbiguous = "AMBIGUOUS"
	eventSubmit    = "SUBMIT"
	eventResolved  = "RESOLVED"
	eventRejected  = "REJECTED"
	eventCancel    = "CANCEL"
)

// resolutionContext is the statekit context for the sub-workflow.
type resolutionContext struct {
	ItemCount int
}

// resolutionFlow drives the exception sub-workflow through a statekit
// machine. The interpreter is authoritative for the lifecycle state;
// the items slice rides alongside and is guarded by the coordinator's
// mutex like the rest of the workflow state.
type resolutionFlow struct {
	interp *statekit.Interpreter[resolutionContext]
	items  []ports.AmbiguousItem
}

func newResolutionFlow() (*resolutionFlow, error) {
	machine, err := statekit.NewMachine[resolutionContext]("task-resolution").
		WithInitial("closed").
		WithContext(resolutionContext{}).
		State("closed").
		On(eventAmbiguous).Target("open").Done().
		State("open").
		On(eventSubmit).Target("resolving").
		On(eventCancel).Target("closed").Done().
		State("resolving").
		On(eventResolved).Target("closed").
		On(eventRejected).Target("open").Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build resolution state machine: %w", err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()

	return &resolutionFlow{interp: interp}, nil
}

// state reads the interpreter's current state. Events the machine does
// not accept leave it unchanged, so illegal sends cannot desync the
// lifecycle.
func (f *resolutionFlow) state() ResolutionState {
	return ResolutionState(f.interp.State().Value)
}

func (f *resolutionFlow) open(items []ports.AmbiguousItem) {
	f.interp.Send(statekit.Event{Type: eventAmbiguous, Payload: map[string]interface{}{"items": len(items)}})
	if f.state() == ResolutionOpen {
		f.items = items
	}
}

func (f *resolutionFlow) submit() {
	f.interp.Send(statekit.Event{Type: eventSubmit})
}

func (f *resolutionFlow) resolved() {
	f.interp.Send(statekit.Event{Type: eventResolved})
	if f.state() == ResolutionClosed {
		f.items = nil
	}
}

func (f *resolutionFlow) rejected() {
	f.interp.Send(statekit.Event{Type: eventRejected})
}

func (f *resolutionFlow) cancel() {
	f.interp.Send(statekit.Event{Type: eventCancel})
	if f.state() == ResolutionClosed {
		f.items = nil
	}
}

func (f *resolutionFlow) stop() {
	f.interp.Stop()
}

func (f *resolutionFlow) view() ResolutionView {
	items := make([]ports.AmbiguousItem, len(f.items))
	copy(items, f.items)
	if len(items) == 0 {
		items = nil
	}
	return ResolutionView{State: f.state(), Items: items}
}
