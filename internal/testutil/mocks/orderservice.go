// Package mocks provides test doubles for testing.
package mocks

import (
	"context"
	"sync"

	"github.com/signwerk/orderprep/internal/ports"
)

// OrderService is a thread-safe scripted test double for
// ports.OrderService. Each operation returns its configured result, or
// its configured error if one is set.
type OrderService struct {
	mu    sync.RWMutex
	calls []string

	OrderInfo                 ports.OrderInfo
	OrderErr                  error
	ValidateRes               ports.ValidationResult
	ValidateErr               error
	EstimateInfo              ports.StalenessInfo
	EstimateInfoErr           error
	CreateEstimateRes         ports.EstimateResult
	CreateEstimateErr         error
	DocumentsInfo             ports.StalenessInfo
	DocumentsInfoErr          error
	GenerateDocumentsRes      ports.DocumentsResult
	GenerateDocumentsErr      error
	AccountingDocumentInfo    ports.StalenessInfo
	AccountingDocumentInfoErr error
	DownloadRes               ports.DownloadResult
	DownloadErr               error
	TasksInfo                 ports.TaskStalenessInfo
	TasksInfoErr              error
	GenerateTasksRes          ports.TaskGenerationResult
	GenerateTasksErr          error
	ResolveRes                ports.TaskResolutionResult
	ResolveErr                error
	FileErr                   error

	// LastResolutions records the most recent resolution submission.
	LastResolutions []ports.Resolution
}

// NewOrderService creates an OrderService mock whose order is a plain
// invoiced order and whose probes report nothing exists yet.
func NewOrderService() *OrderService {
	return &OrderService{
		OrderInfo: ports.OrderInfo{ID: "ord-1", Reference: "2026-0001", PaymentType: ports.PaymentInvoice},
	}
}

// Calls returns the operation names invoked so far, in order.
func (m *OrderService) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named operation was invoked.
func (m *OrderService) CallCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *OrderService) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

// Order returns the configured order header.
func (m *OrderService) Order(_ context.Context, _ string) (ports.OrderInfo, error) {
	m.record("Order")
	return m.OrderInfo, m.OrderErr
}

// Validate returns the configured validation result.
func (m *OrderService) Validate(_ context.Context, _ string) (ports.ValidationResult, error) {
	m.record("Validate")
	if m.ValidateErr != nil {
		return ports.ValidationResult{}, m.ValidateErr
	}
	return m.ValidateRes, nil
}

// CheckEstimateStaleness returns the configured estimate probe.
func (m *OrderService) CheckEstimateStaleness(_ context.Context, _ string) (ports.StalenessInfo, error) {
	m.record("CheckEstimateStaleness")
	if m.EstimateInfoErr != nil {
		return ports.StalenessInfo{}, m.EstimateInfoErr
	}
	return m.EstimateInfo, nil
}

// CreateEstimate returns the configured creation result.
func (m *OrderService) CreateEstimate(_ context.Context, _ string) (ports.EstimateResult, error) {
	m.record("CreateEstimate")
	if m.CreateEstimateErr != nil {
		return ports.EstimateResult{}, m.CreateEstimateErr
	}
	return m.CreateEstimateRes, nil
}

// CheckDocumentStaleness returns the configured documents probe.
func (m *OrderService) CheckDocumentStaleness(_ context.Context, _ string) (ports.StalenessInfo, error) {
	m.record("CheckDocumentStaleness")
	if m.DocumentsInfoErr != nil {
		return ports.StalenessInfo{}, m.DocumentsInfoErr
	}
	return m.DocumentsInfo, nil
}

// GenerateDocuments returns the configured generation result.
func (m *OrderService) GenerateDocuments(_ context.Context, _ string) (ports.DocumentsResult, error) {
	m.record("GenerateDocuments")
	if m.GenerateDocumentsErr != nil {
		return ports.DocumentsResult{}, m.GenerateDocumentsErr
	}
	return m.GenerateDocumentsRes, nil
}

// CheckAccountingDocumentStaleness returns the configured probe.
func (m *OrderService) CheckAccountingDocumentStaleness(_ context.Context, _ string) (ports.StalenessInfo, error) {
	m.record("CheckAccountingDocumentStaleness")
	if m.AccountingDocumentInfoErr != nil {
		return ports.StalenessInfo{}, m.AccountingDocumentInfoErr
	}
	return m.AccountingDocumentInfo, nil
}

// DownloadAccountingDocument returns the configured download result.
func (m *OrderService) DownloadAccountingDocument(_ context.Context, _ string) (ports.DownloadResult, error) {
	m.record("DownloadAccountingDocument")
	if m.DownloadErr != nil {
		return ports.DownloadResult{}, m.DownloadErr
	}
	return m.DownloadRes, nil
}

// CheckTaskStaleness returns the configured task probe.
func (m *OrderService) CheckTaskStaleness(_ context.Context, _ string) (ports.TaskStalenessInfo, error) {
	m.record("CheckTaskStaleness")
	if m.TasksInfoErr != nil {
		return ports.TaskStalenessInfo{}, m.TasksInfoErr
	}
	return m.TasksInfo, nil
}

// GenerateTasks returns the configured generation result.
func (m *OrderService) GenerateTasks(_ context.Context, _ string) (ports.TaskGenerationResult, error) {
	m.record("GenerateTasks")
	if m.GenerateTasksErr != nil {
		return ports.TaskGenerationResult{}, m.GenerateTasksErr
	}
	return m.GenerateTasksRes, nil
}

// ResolveAmbiguousItems records the resolutions and returns the
// configured result.
func (m *OrderService) ResolveAmbiguousItems(_ context.Context, _ string, resolutions []ports.Resolution) (ports.TaskResolutionResult, error) {
	m.record("ResolveAmbiguousItems")
	m.mu.Lock()
	m.LastResolutions = resolutions
	m.mu.Unlock()
	if m.ResolveErr != nil {
		return ports.TaskResolutionResult{}, m.ResolveErr
	}
	return m.ResolveRes, nil
}

// FileDocuments returns the configured error, if any.
func (m *OrderService) FileDocuments(_ context.Context, _ string) error {
	m.record("FileDocuments")
	return m.FileErr
}

// Ensure OrderService implements the port.
var _ ports.OrderService = (*OrderService)(nil)
