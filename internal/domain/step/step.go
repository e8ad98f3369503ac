// Package step defines the identity, lifecycle and registry of the
// order-preparation pipeline steps.
package step

// ID is the stable identifier of a pipeline step.
type ID string

// Step identifiers for the standard preparation pipeline.
const (
	IDValidate           ID = "validate"
	IDEstimate           ID = "estimate"
	IDDocuments          ID = "documents"
	IDAccountingDocument ID = "accounting-document"
	IDTasks              ID = "tasks"
	IDFiling             ID = "filing"
)

// String returns the identifier as a string.
func (id ID) String() string {
	return string(id)
}

// Kind tags a step with its staleness policy family.
type Kind string

const (
	// KindValidation is the destructive-cleanup validation step. It never
	// participates in staleness tracking; every workflow opening re-runs it.
	KindValidation Kind = "validation"
	// KindAccountingEstimate is the accounting estimate step. Hard staleness
	// policy: a stale estimate is not done.
	KindAccountingEstimate Kind = "accountingEstimate"
	// KindDocumentSet covers generated and downloaded document steps. Hard
	// staleness policy, same as the estimate.
	KindDocumentSet Kind = "documentSet"
	// KindProductionTasks is the task generation step. Soft staleness policy:
	// freshness never downgrades completion.
	KindProductionTasks Kind = "productionTasks"
	// KindFileFiling is the final filing step. No hash-based staleness; its
	// eligibility comes from the dependency resolver alone.
	KindFileFiling Kind = "fileFiling"
)

// StaleCapable reports whether steps of this kind participate in
// staleness tracking at all. Validation is the only kind that does not.
func (k Kind) StaleCapable() bool {
	return k != KindValidation
}

// Status is the lifecycle state of a single step.
type Status string

const (
	// StatusPending means the step has not produced a current artifact,
	// either because it never ran or because staleness reset it.
	StatusPending Status = "pending"
	// StatusRunning means the step's external operation is in flight.
	StatusRunning Status = "running"
	// StatusCompleted means the step succeeded and its artifact is current.
	StatusCompleted Status = "completed"
	// StatusFailed means the step's external operation failed.
	StatusFailed Status = "failed"
	// StatusSkipped means the step was bypassed by operator action or
	// business rule.
	StatusSkipped Status = "skipped"
)

// String returns the status as a string.
func (s Status) String() string {
	return string(s)
}

// Terminal reports whether the status satisfies downstream dependencies.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// Definition describes one step of a workflow pipeline.
type Definition struct {
	id        ID
	order     int
	kind      Kind
	dependsOn []ID
	skippable bool
}

// NewDefinition creates a step definition. An empty dependsOn means the
// registry fills in the default linear chain.
func NewDefinition(id ID, order int, kind Kind, dependsOn []ID, skippable bool) Definition {
	return Definition{
		id:        id,
		order:     order,
		kind:      kind,
		dependsOn: dependsOn,
		skippable: skippable,
	}
}

// ID returns the step identifier.
func (d Definition) ID() ID {
	return d.id
}

// Order returns the display and chaining position.
func (d Definition) Order() int {
	return d.order
}

// Kind returns the staleness policy family.
func (d Definition) Kind() Kind {
	return d.kind
}

// DependsOn returns the step ids that must be completed or skipped
// before this step is eligible to run. The slice is a copy; mutating
// it does not change the definition.
func (d Definition) DependsOn() []ID {
	out := make([]ID, len(d.dependsOn))
	copy(out, d.dependsOn)
	return out
}

// Skippable reports whether the step may be bypassed.
func (d Definition) Skippable() bool {
	return d.skippable
}

// StaleCapable reports whether the step participates in staleness tracking.
func (d Definition) StaleCapable() bool {
	return d.kind.StaleCapable()
}
