package ports

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PaymentType distinguishes invoiced orders from cash sales. Cash
// orders bypass the accounting estimate.
type PaymentType string

const (
	// PaymentInvoice is the default invoiced payment flow.
	PaymentInvoice PaymentType = "invoice"
	// PaymentCash marks a cash sale.
	PaymentCash PaymentType = "cash"
)

// OrderInfo is the minimal order header the orchestrator needs.
type OrderInfo struct {
	ID          string
	Reference   string
	PaymentType PaymentType
}

// ValidationResult reports a successful validation run. Validation also
// removes empty specification rows, so CleanedRowCount may be non-zero.
type ValidationResult struct {
	CleanedRowCount int
}

// StalenessInfo is the remote freshness probe for a hash-tracked artifact.
type StalenessInfo struct {
	Exists      bool
	SourceHash  string
	CurrentHash string
	Identifier  string
	CreatedAt   time.Time
}

// TaskStalenessInfo extends the freshness probe with the task count.
type TaskStalenessInfo struct {
	StalenessInfo
	TaskCount int
}

// EstimateResult reports a created accounting estimate.
type EstimateResult struct {
	Identifier string
	SourceHash string
}

// DocumentsResult reports generated order documents.
type DocumentsResult struct {
	URLs       []string
	SourceHash string
}

// DownloadResult reports a downloaded accounting document.
type DownloadResult struct {
	URL        string
	SourceHash string
}

// AmbiguousItem is a specification line the task generator could not
// map to a production recipe without operator input.
type AmbiguousItem struct {
	LineID      string
	Description string
	Candidates  []string
	Suggested   string
}

// Resolution is an operator's answer for one ambiguous item.
type Resolution struct {
	LineID string
	Recipe string
}

// TaskGenerationResult reports a task generation attempt. A non-empty
// AmbiguousItems means the generation is parked awaiting resolutions.
type TaskGenerationResult struct {
	TaskCount      int
	SourceHash     string
	AmbiguousItems []AmbiguousItem
}

// TaskResolutionResult reports a successful resolution submission.
type TaskResolutionResult struct {
	TaskCount  int
	SourceHash string
}

// OrderService is the remote collaborator that performs the actual work
// of each pipeline step. All operations are blocking and context-aware;
// the server owns timeouts and retries.
type OrderService interface {
	// Order fetches the order header.
	Order(ctx context.Context, orderID string) (OrderInfo, error)

	// Validate checks the order specification and removes empty rows.
	// Field-level problems are returned as a *ValidationError.
	Validate(ctx context.Context, orderID string) (ValidationResult, error)

	// CheckEstimateStaleness probes the accounting estimate's freshness.
	CheckEstimateStaleness(ctx context.Context, orderID string) (StalenessInfo, error)

	// CreateEstimate creates the accounting estimate.
	CreateEstimate(ctx context.Context, orderID string) (EstimateResult, error)

	// CheckDocumentStaleness probes the generated documents' freshness.
	CheckDocumentStaleness(ctx context.Context, orderID string) (StalenessInfo, error)

	// GenerateDocuments renders the order documents.
	GenerateDocuments(ctx context.Context, orderID string) (DocumentsResult, error)

	// CheckAccountingDocumentStaleness probes the downloaded accounting
	// document's freshness.
	CheckAccountingDocumentStaleness(ctx context.Context, orderID string) (StalenessInfo, error)

	// DownloadAccountingDocument fetches the accounting system's PDF.
	DownloadAccountingDocument(ctx context.Context, orderID string) (DownloadResult, error)

	// CheckTaskStaleness probes the production task set's freshness.
	CheckTaskStaleness(ctx context.Context, orderID string) (TaskStalenessInfo, error)

	// GenerateTasks derives production tasks from the order specification.
	GenerateTasks(ctx context.Context, orderID string) (TaskGenerationResult, error)

	// ResolveAmbiguousItems submits operator resolutions for a parked
	// task generation.
	ResolveAmbiguousItems(ctx context.Context, orderID string, resolutions []Resolution) (TaskResolutionResult, error)

	// FileDocuments files the generated and accounting documents. Fails
	// if either prerequisite document is missing.
	FileDocuments(ctx context.Context, orderID string) error
}

// FieldError is a single field-level validation problem.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries field-level validation problems as a
// structured list rather than one folded message.
type ValidationError struct {
	FieldErrors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.FieldErrors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// RemoteError is a network or server failure from the order service.
type RemoteError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server returned %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}
