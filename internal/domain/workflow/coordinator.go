package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/signwerk/orderprep/internal/domain/staleness"
	"github.com/signwerk/orderprep/internal/domain/step"
	"github.com/signwerk/orderprep/internal/ports"
)

// User-facing messages not owned by the staleness policy.
const (
	msgSkippedByOperator   = "Skipped by operator"
	msgAutoSkipped         = "Skipped automatically (cash order)"
	msgGenerationCancelled = "Task generation cancelled"
	msgDocumentsFiled      = "✓ Documents filed"
)

// Coordinator is the sole mutator of a workflow's state. Every mutation
// goes through apply, which derives the new state from the state at
// application time, so a remote result landing late composes with
// whatever interleaved instead of clobbering it.
type Coordinator struct {
	svc          ports.OrderService
	logger       ports.Logger
	workflowType step.WorkflowType

	mu         sync.Mutex
	instanceID string
	st         *state
	resolution *resolutionFlow
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkflowType selects the pipeline layout (default: standard).
func WithWorkflowType(t step.WorkflowType) Option {
	return func(c *Coordinator) {
		c.workflowType = t
	}
}

// NewCoordinator creates a coordinator for the given order service.
func NewCoordinator(svc ports.OrderService, logger ports.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		svc:          svc,
		logger:       logger,
		workflowType: step.TypeStandard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apply runs a mutation against the state as it stands now. All writes
// to workflow state go through here.
func (c *Coordinator) apply(fn func(s *state)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st != nil {
		fn(c.st)
	}
}

// Open loads the order and initializes the workflow: steps pending,
// artifacts empty, cash orders auto-skipping the estimate. It then runs
// the fresh validation cycle every opening requires and derives each
// remaining step's status from a staleness probe. The resulting state
// is a cache; the remote system stays authoritative.
func (c *Coordinator) Open(ctx context.Context, orderID string) error {
	order, err := c.svc.Order(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	flow, err := newResolutionFlow()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.resolution != nil {
		c.resolution.stop()
	}
	c.instanceID = uuid.NewString()
	c.st = newState(order, step.DefinitionsFor(c.workflowType))
	c.resolution = flow
	if order.PaymentType == ports.PaymentCash {
		if ss := c.st.find(step.IDEstimate); ss != nil {
			if next, terr := step.Transition(ss.def, ss.status, step.EventSkip); terr == nil {
				ss.status = next
				ss.autoSkipped = true
				ss.message = msgAutoSkipped
			}
		}
	}
	instanceID := c.instanceID
	c.mu.Unlock()

	c.logger.Info(ctx, "workflow opened",
		ports.F("order", orderID),
		ports.F("instance", instanceID),
		ports.F("payment", string(order.PaymentType)))

	// Validation performs destructive cleanup the other steps' probes
	// depend on, so it must finish before the refresh pass. A
	// successful run sweeps the probes itself; a failed one still gets
	// the once-per-open sweep here.
	if err := c.RunStep(ctx, step.IDValidate); err != nil {
		c.logger.Warn(ctx, "validation failed on open", ports.F("order", orderID), ports.F("error", err.Error()))
		c.RefreshAll(ctx)
	}
	return nil
}

// Close releases the workflow. Client-side state is discarded, not
// persisted; reopening re-derives everything.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolution != nil {
		c.resolution.stop()
		c.resolution = nil
	}
	c.st = nil
}

// OrderID returns the open order's id, or empty.
func (c *Coordinator) OrderID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return ""
	}
	return c.st.order.ID
}

// Order returns the open order's header.
func (c *Coordinator) Order() ports.OrderInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return ports.OrderInfo{}
	}
	return c.st.order
}

// Views returns the derived read-only state of every step.
func (c *Coordinator) Views() []StepView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return nil
	}
	return c.st.views()
}

// View returns the derived state of one step.
func (c *Coordinator) View(id step.ID) (StepView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return StepView{}, ErrNotOpen
	}
	ss := c.st.find(id)
	if ss == nil {
		return StepView{}, fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	return c.st.view(ss), nil
}

// Resolution returns the exception sub-workflow's derived state.
func (c *Coordinator) Resolution() ResolutionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolution == nil {
		return ResolutionView{State: ResolutionClosed}
	}
	return c.resolution.view()
}

// RunStep triggers one step. The dependency gate and the start
// transition happen atomically; the remote operation runs outside the
// lock with no client-side timeout, and its result is settled against
// the state as it stands on arrival.
func (c *Coordinator) RunStep(ctx context.Context, id step.ID) error {
	var def step.Definition

	err := func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.st == nil {
			return ErrNotOpen
		}
		ss := c.st.find(id)
		if ss == nil {
			return fmt.Errorf("%w: %s", ErrUnknownStep, id)
		}
		if id == step.IDTasks && c.resolution.state() != ResolutionClosed {
			return ErrResolutionOpen
		}
		if !CanRun(ss.def, c.st.statuses()) {
			return fmt.Errorf("%w: %s", ErrDependencyNotSatisfied, id)
		}
		if running := c.st.runningStep(); running != nil {
			return fmt.Errorf("%w: %s", ErrStepBusy, running.def.ID())
		}
		next, terr := step.Transition(ss.def, ss.status, step.EventStart)
		if terr != nil {
			return terr
		}
		ss.status = next
		ss.message = ""
		ss.errMsg = ""
		ss.fieldErrors = nil
		// An explicit start is the only thing that lifts the
		// post-cancellation refresh suppression.
		ss.suppressRefresh = false
		def = ss.def
		return nil
	}()
	if err != nil {
		return err
	}

	c.logger.Info(ctx, "step started", ports.F("step", id.String()), ports.F("order", c.OrderID()))
	return c.execute(ctx, def)
}

// Skip bypasses a pending skippable step by operator action.
func (c *Coordinator) Skip(id step.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return ErrNotOpen
	}
	ss := c.st.find(id)
	if ss == nil {
		return fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	next, err := step.Transition(ss.def, ss.status, step.EventSkip)
	if err != nil {
		return err
	}
	ss.status = next
	ss.autoSkipped = false
	ss.message = msgSkippedByOperator
	ss.errMsg = ""
	ss.fieldErrors = nil
	return nil
}

// UndoSkip returns a skipped step to pending, whether it was skipped
// manually or by business rule.
func (c *Coordinator) UndoSkip(id step.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return ErrNotOpen
	}
	ss := c.st.find(id)
	if ss == nil {
		return fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	next, err := step.Transition(ss.def, ss.status, step.EventUndoSkip)
	if err != nil {
		return err
	}
	ss.status = next
	ss.autoSkipped = false
	ss.message = ""
	return nil
}

// RefreshAll probes every hash-tracked step once, in pipeline order.
// It runs after opening and after every successful validation; callers
// may also invoke it on demand.
func (c *Coordinator) RefreshAll(ctx context.Context) {
	for _, id := range []step.ID{step.IDEstimate, step.IDDocuments, step.IDAccountingDocument, step.IDTasks} {
		if err := c.RefreshStaleness(ctx, id); err != nil {
			c.logger.Warn(ctx, "staleness refresh failed",
				ports.F("step", id.String()), ports.F("error", err.Error()))
		}
	}
}

// RefreshStaleness re-derives one step's resting status from a remote
// freshness probe. It is a no-op while the step is running, while a
// resolution is open for it, or while a cancelled resolution suppresses
// it. Probing twice with no intervening mutation yields the same
// status and message.
func (c *Coordinator) RefreshStaleness(ctx context.Context, id step.ID) error {
	c.mu.Lock()
	if c.st == nil {
		c.mu.Unlock()
		return ErrNotOpen
	}
	ss := c.st.find(id)
	if ss == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	def := ss.def
	if !def.StaleCapable() || def.Kind() == step.KindFileFiling {
		c.mu.Unlock()
		return nil
	}
	if ss.status == step.StatusRunning || ss.suppressRefresh ||
		(id == step.IDTasks && c.resolution.state() != ResolutionClosed) {
		c.mu.Unlock()
		return nil
	}
	orderID := c.st.order.ID
	c.mu.Unlock()

	probe, artifact, err := c.probe(ctx, def, orderID)
	if err != nil {
		return fmt.Errorf("staleness check for %s: %w", id, err)
	}

	c.apply(func(s *state) {
		ss := s.find(id)
		// Re-check at application time; an execution or a cancellation
		// may have interleaved with the remote probe.
		if ss == nil || ss.status == step.StatusRunning || ss.suppressRefresh {
			return
		}
		if kind, ok := artifactKindFor(id); ok {
			s.artifacts[kind] = artifact
		}
		out := staleness.Evaluate(def.Kind(), ss.status, titleFor(id), probe, ss.generatedThisSession)
		s.applyOutcome(ss, out)
	})

	c.logger.Debug(ctx, "staleness refreshed",
		ports.F("step", id.String()), ports.F("fresh", probe.Fresh()), ports.F("exists", probe.Exists))
	return nil
}

// probe fetches the freshness signal for one step's artifact.
func (c *Coordinator) probe(ctx context.Context, def step.Definition, orderID string) (staleness.Probe, Artifact, error) {
	switch def.ID() {
	case step.IDEstimate:
		info, err := c.svc.CheckEstimateStaleness(ctx, orderID)
		if err != nil {
			return staleness.Probe{}, Artifact{}, err
		}
		return probeFromInfo(info), artifactFromInfo(info), nil
	case step.IDDocuments:
		info, err := c.svc.CheckDocumentStaleness(ctx, orderID)
		if err != nil {
			return staleness.Probe{}, Artifact{}, err
		}
		return probeFromInfo(info), artifactFromInfo(info), nil
	case step.IDAccountingDocument:
		info, err := c.svc.CheckAccountingDocumentStaleness(ctx, orderID)
		if err != nil {
			return staleness.Probe{}, Artifact{}, err
		}
		return probeFromInfo(info), artifactFromInfo(info), nil
	case step.IDTasks:
		info, err := c.svc.CheckTaskStaleness(ctx, orderID)
		if err != nil {
			return staleness.Probe{}, Artifact{}, err
		}
		probe := probeFromInfo(info.StalenessInfo)
		probe.TaskCount = info.TaskCount
		artifact := artifactFromInfo(info.StalenessInfo)
		artifact.Count = info.TaskCount
		return probe, artifact, nil
	default:
		return staleness.Probe{}, Artifact{}, fmt.Errorf("%w: %s has no staleness probe", ErrUnknownStep, def.ID())
	}
}

func probeFromInfo(info ports.StalenessInfo) staleness.Probe {
	return staleness.Probe{
		Exists:      info.Exists,
		SourceHash:  info.SourceHash,
		CurrentHash: info.CurrentHash,
	}
}

func artifactFromInfo(info ports.StalenessInfo) Artifact {
	return Artifact{
		Exists:     info.Exists,
		SourceHash: info.SourceHash,
		CreatedAt:  info.CreatedAt,
		Identifier: info.Identifier,
	}
}

// Resolve submits operator resolutions for the parked task generation.
func (c *Coordinator) Resolve(ctx context.Context, resolutions []ports.Resolution) error {
	c.mu.Lock()
	if c.st == nil {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if c.resolution.state() != ResolutionOpen {
		c.mu.Unlock()
		return ErrResolutionNotOpen
	}
	c.resolution.submit()
	orderID := c.st.order.ID
	c.mu.Unlock()

	res, err := c.svc.ResolveAmbiguousItems(ctx, orderID, resolutions)
	if err != nil {
		c.mu.Lock()
		// The workflow may have closed while the call was in flight.
		if c.resolution != nil {
			c.resolution.rejected()
		}
		c.mu.Unlock()
		c.logger.Error(ctx, "resolution submission failed", ports.F("order", orderID), ports.F("error", err.Error()))
		return fmt.Errorf("failed to submit resolutions: %w", err)
	}

	c.settleTasks(res.TaskCount, res.SourceHash)

	c.mu.Lock()
	if c.resolution != nil {
		c.resolution.resolved()
	}
	c.mu.Unlock()

	c.logger.Info(ctx, "ambiguous items resolved", ports.F("order", orderID), ports.F("tasks", res.TaskCount))
	return nil
}

// CancelResolution abandons waiting for operator input. The step
// returns to pending (cancellation is not an error) and the next
// automatic staleness refresh is suppressed so it cannot overwrite the
// cancellation message with a stale "tasks exist".
func (c *Coordinator) CancelResolution(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return ErrNotOpen
	}
	if c.resolution.state() != ResolutionOpen {
		return ErrResolutionNotOpen
	}
	c.resolution.cancel()

	ss := c.st.find(step.IDTasks)
	if next, err := step.Transition(ss.def, ss.status, step.EventResetToPending); err == nil {
		ss.status = next
	}
	ss.message = msgGenerationCancelled
	ss.errMsg = ""
	ss.suppressRefresh = true

	c.logger.Info(ctx, "task resolution cancelled", ports.F("order", c.st.order.ID))
	return nil
}

// execute dispatches the remote operation for one started step and
// settles the result.
func (c *Coordinator) execute(ctx context.Context, def step.Definition) error {
	orderID := c.OrderID()

	switch def.ID() {
	case step.IDValidate:
		res, err := c.svc.Validate(ctx, orderID)
		if err != nil {
			return c.settleFailure(ctx, def, err)
		}
		msg := "✓ Order validated"
		if res.CleanedRowCount > 0 {
			msg = fmt.Sprintf("✓ Order validated (%d empty rows removed)", res.CleanedRowCount)
		}
		c.apply(func(s *state) {
			ss := s.find(def.ID())
			succeed(ss)
			ss.message = msg
		})
		// The destructive cleanup may have changed the hashes every
		// downstream probe compares against, and completion just made
		// those steps runnable. Re-derive them now.
		c.RefreshAll(ctx)
		return nil

	case step.IDEstimate:
		res, err := c.svc.CreateEstimate(ctx, orderID)
		if err != nil {
			return c.settleFailure(ctx, def, err)
		}
		c.settleArtifact(def, ArtifactEstimate,
			Artifact{Exists: true, SourceHash: res.SourceHash, CreatedAt: time.Now(), Identifier: res.Identifier},
			staleness.Probe{Exists: true, SourceHash: res.SourceHash, CurrentHash: res.SourceHash})
		return nil

	case step.IDDocuments:
		res, err := c.svc.GenerateDocuments(ctx, orderID)
		if err != nil {
			return c.settleFailure(ctx, def, err)
		}
		c.settleArtifact(def, ArtifactDocuments,
			Artifact{Exists: true, SourceHash: res.SourceHash, CreatedAt: time.Now(), URLs: res.URLs},
			staleness.Probe{Exists: true, SourceHash: res.SourceHash, CurrentHash: res.SourceHash})
		return nil

	case step.IDAccountingDocument:
		res, err := c.svc.DownloadAccountingDocument(ctx, orderID)
		if err != nil {
			return c.settleFailure(ctx, def, err)
		}
		c.settleArtifact(def, ArtifactAccountingDocument,
			Artifact{Exists: true, SourceHash: res.SourceHash, CreatedAt: time.Now(), URLs: []string{res.URL}},
			staleness.Probe{Exists: true, SourceHash: res.SourceHash, CurrentHash: res.SourceHash})
		return nil

	case step.IDTasks:
		res, err := c.svc.GenerateTasks(ctx, orderID)
		if err != nil {
			return c.settleFailure(ctx, def, err)
		}
		if len(res.AmbiguousItems) > 0 {
			// Ambiguity is not failure: the step stays running and the
			// sub-workflow takes over until the operator decides.
			c.mu.Lock()
			if c.st == nil || c.resolution == nil {
				// The workflow closed while generation was in flight.
				c.mu.Unlock()
				return nil
			}
			if ss := c.st.find(def.ID()); ss != nil {
				ss.message = fmt.Sprintf("⚠ %d items need operator resolution", len(res.AmbiguousItems))
			}
			c.resolution.open(res.AmbiguousItems)
			c.mu.Unlock()
			c.logger.Info(ctx, "task generation needs resolution",
				ports.F("order", orderID), ports.F("items", len(res.AmbiguousItems)))
			return nil
		}
		c.settleTasks(res.TaskCount, res.SourceHash)
		return nil

	case step.IDFiling:
		if err := c.svc.FileDocuments(ctx, orderID); err != nil {
			return c.settleFailure(ctx, def, err)
		}
		c.apply(func(s *state) {
			ss := s.find(def.ID())
			succeed(ss)
			ss.message = msgDocumentsFiled
		})
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownStep, def.ID())
	}
}

// settleArtifact records the artifact a step just produced, completes
// the step, and immediately re-runs the staleness policy against the
// just-written freshness. The freshly-completed and re-derived paths
// share one code path, so status and message cannot drift apart.
func (c *Coordinator) settleArtifact(def step.Definition, kind ArtifactKind, artifact Artifact, probe staleness.Probe) {
	c.apply(func(s *state) {
		ss := s.find(def.ID())
		s.artifacts[kind] = artifact
		succeed(ss)
		out := staleness.Evaluate(def.Kind(), ss.status, titleFor(def.ID()), probe, ss.generatedThisSession)
		s.applyOutcome(ss, out)
	})
}

// settleTasks completes the task step after a generation or resolution
// produced a task set.
func (c *Coordinator) settleTasks(taskCount int, sourceHash string) {
	c.apply(func(s *state) {
		ss := s.find(step.IDTasks)
		ss.generatedThisSession = true
		s.artifacts[ArtifactTasks] = Artifact{
			Exists:     true,
			SourceHash: sourceHash,
			CreatedAt:  time.Now(),
			Count:      taskCount,
		}
		succeed(ss)
		out := staleness.Evaluate(ss.def.Kind(), ss.status, titleFor(step.IDTasks),
			staleness.Probe{Exists: true, SourceHash: sourceHash, CurrentHash: sourceHash, TaskCount: taskCount}, true)
		s.applyOutcome(ss, out)
	})
}

// settleFailure records a remote failure: the step becomes failed with
// the most specific message available, field-level validation problems
// staying a structured list.
func (c *Coordinator) settleFailure(ctx context.Context, def step.Definition, cause error) error {
	c.apply(func(s *state) {
		ss := s.find(def.ID())
		if next, err := step.Transition(ss.def, ss.status, step.EventFail); err == nil {
			ss.status = next
		}
		ss.message = ""
		var vErr *ports.ValidationError
		if errors.As(cause, &vErr) {
			ss.errMsg = "validation failed"
			ss.fieldErrors = vErr.FieldErrors
		} else {
			ss.errMsg = cause.Error()
		}
	})
	c.logger.Error(ctx, "step failed", ports.F("step", def.ID().String()), ports.F("error", cause.Error()))
	return fmt.Errorf("step %s: %w", def.ID(), cause)
}

// succeed completes a running step and clears its failure state.
func succeed(ss *stepState) {
	if next, err := step.Transition(ss.def, ss.status, step.EventSucceed); err == nil {
		ss.status = next
	}
	ss.errMsg = ""
	ss.fieldErrors = nil
}
