// Package orderservice provides an HTTP adapter for the remote order
// service the workflow coordinator drives.
package orderservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/signwerk/orderprep/internal/ports"
)

// probeTimeout bounds staleness probes. Step operations deliberately
// carry no client-side timeout; the server owns those.
const probeTimeout = 10 * time.Second

// Client is an HTTP JSON implementation of ports.OrderService.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the order service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type orderPayload struct {
	ID          string `json:"id"`
	Reference   string `json:"reference"`
	PaymentType string `json:"paymentType"`
}

type validatePayload struct {
	CleanedRowCount int `json:"cleanedRowCount"`
}

type stalenessPayload struct {
	Exists      bool      `json:"exists"`
	SourceHash  string    `json:"sourceHash"`
	CurrentHash string    `json:"currentHash"`
	Identifier  string    `json:"identifier"`
	CreatedAt   time.Time `json:"createdAt"`
	TaskCount   int       `json:"taskCount"`
}

type estimatePayload struct {
	Identifier string `json:"identifier"`
	SourceHash string `json:"sourceHash"`
}

type documentsPayload struct {
	URLs       []string `json:"urls"`
	SourceHash string   `json:"sourceHash"`
}

type downloadPayload struct {
	URL        string `json:"url"`
	SourceHash string `json:"sourceHash"`
}

type ambiguousItemPayload struct {
	LineID      string   `json:"lineId"`
	Description string   `json:"description"`
	Candidates  []string `json:"candidates"`
	Suggested   string   `json:"suggested"`
}

type tasksPayload struct {
	TaskCount      int                    `json:"taskCount"`
	SourceHash     string                 `json:"sourceHash"`
	AmbiguousItems []ambiguousItemPayload `json:"ambiguousItems"`
}

type resolutionPayload struct {
	LineID string `json:"lineId"`
	Recipe string `json:"recipe"`
}

type errorPayload struct {
	Error       string `json:"error"`
	FieldErrors []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"fieldErrors"`
}

// Order fetches the order header.
func (c *Client) Order(ctx context.Context, orderID string) (ports.OrderInfo, error) {
	var out orderPayload
	if err := c.get(ctx, "order", c.orderPath(orderID, ""), &out); err != nil {
		return ports.OrderInfo{}, err
	}
	return ports.OrderInfo{
		ID:          out.ID,
		Reference:   out.Reference,
		PaymentType: ports.PaymentType(out.PaymentType),
	}, nil
}

// Validate checks the order specification and removes empty rows.
func (c *Client) Validate(ctx context.Context, orderID string) (ports.ValidationResult, error) {
	var out validatePayload
	if err := c.post(ctx, "validate", c.orderPath(orderID, "validate"), nil, &out); err != nil {
		return ports.ValidationResult{}, err
	}
	return ports.ValidationResult{CleanedRowCount: out.CleanedRowCount}, nil
}

// CheckEstimateStaleness probes the accounting estimate's freshness.
func (c *Client) CheckEstimateStaleness(ctx context.Context, orderID string) (ports.StalenessInfo, error) {
	return c.staleness(ctx, "estimate staleness", c.orderPath(orderID, "estimate/staleness"))
}

// CreateEstimate creates the accounting estimate.
func (c *Client) CreateEstimate(ctx context.Context, orderID string) (ports.EstimateResult, error) {
	var out estimatePayload
	if err := c.post(ctx, "create estimate", c.orderPath(orderID, "estimate"), nil, &out); err != nil {
		return ports.EstimateResult{}, err
	}
	return ports.EstimateResult{Identifier: out.Identifier, SourceHash: out.SourceHash}, nil
}

// CheckDocumentStaleness probes the generated documents' freshness.
func (c *Client) CheckDocumentStaleness(ctx context.Context, orderID string) (ports.StalenessInfo, error) {
	return c.staleness(ctx, "document staleness", c.orderPath(orderID, "documents/staleness"))
}

// GenerateDocuments renders the order documents.
func (c *Client) GenerateDocuments(ctx context.Context, orderID string) (ports.DocumentsResult, error) {
	var out documentsPayload
	if err := c.post(ctx, "generate documents", c.orderPath(orderID, "documents"), nil, &out); err != nil {
		return ports.DocumentsResult{}, err
	}
	return ports.DocumentsResult{URLs: out.URLs, SourceHash: out.SourceHash}, nil
}

// CheckAccountingDocumentStaleness probes the downloaded accounting
// document's freshness.
func (c *Client) CheckAccountingDocumentStaleness(ctx context.Context, orderID string) (ports.StalenessInfo, error) {
	return c.staleness(ctx, "accounting document staleness", c.orderPath(orderID, "accounting-document/staleness"))
}

// DownloadAccountingDocument fetches the accounting system's PDF.
func (c *Client) DownloadAccountingDocument(ctx context.Context, orderID string) (ports.DownloadResult, error) {
	var out downloadPayload
	if err := c.post(ctx, "download accounting document", c.orderPath(orderID, "accounting-document/download"), nil, &out); err != nil {
		return ports.DownloadResult{}, err
	}
	return ports.DownloadResult{URL: out.URL, SourceHash: out.SourceHash}, nil
}

// CheckTaskStaleness probes the production task set's freshness.
func (c *Client) CheckTaskStaleness(ctx context.Context, orderID string) (ports.TaskStalenessInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var out stalenessPayload
	if err := c.get(ctx, "task staleness", c.orderPath(orderID, "tasks/staleness"), &out); err != nil {
		return ports.TaskStalenessInfo{}, err
	}
	return ports.TaskStalenessInfo{
		StalenessInfo: stalenessFromPayload(out),
		TaskCount:     out.TaskCount,
	}, nil
}

// GenerateTasks derives production tasks from the order specification.
func (c *Client) GenerateTasks(ctx context.Context, orderID string) (ports.TaskGenerationResult, error) {
	var out tasksPayload
	if err := c.post(ctx, "generate tasks", c.orderPath(orderID, "tasks"), nil, &out); err != nil {
		return ports.TaskGenerationResult{}, err
	}
	items := make([]ports.AmbiguousItem, 0, len(out.AmbiguousItems))
	for _, it := range out.AmbiguousItems {
		items = append(items, ports.AmbiguousItem{
			LineID:      it.LineID,
			Description: it.Description,
			Candidates:  it.Candidates,
			Suggested:   it.Suggested,
		})
	}
	if len(items) == 0 {
		items = nil
	}
	return ports.TaskGenerationResult{
		TaskCount:      out.TaskCount,
		SourceHash:     out.SourceHash,
		AmbiguousItems: items,
	}, nil
}

// ResolveAmbiguousItems submits operator resolutions.
func (c *Client) ResolveAmbiguousItems(ctx context.Context, orderID string, resolutions []ports.Resolution) (ports.TaskResolutionResult, error) {
	body := make([]resolutionPayload, 0, len(resolutions))
	for _, r := range resolutions {
		body = append(body, resolutionPayload{LineID: r.LineID, Recipe: r.Recipe})
	}

	var out tasksPayload
	if err := c.post(ctx, "resolve ambiguous items", c.orderPath(orderID, "tasks/resolutions"), body, &out); err != nil {
		return ports.TaskResolutionResult{}, err
	}
	return ports.TaskResolutionResult{TaskCount: out.TaskCount, SourceHash: out.SourceHash}, nil
}

// FileDocuments files the generated and accounting documents.
func (c *Client) FileDocuments(ctx context.Context, orderID string) error {
	return c.post(ctx, "file documents", c.orderPath(orderID, "filing"), nil, nil)
}

func (c *Client) orderPath(orderID, rest string) string {
	if rest == "" {
		return fmt.Sprintf("%s/api/orders/%s", c.baseURL, orderID)
	}
	return fmt.Sprintf("%s/api/orders/%s/%s", c.baseURL, orderID, rest)
}

func (c *Client) staleness(ctx context.Context, op, url string) (ports.StalenessInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var out stalenessPayload
	if err := c.get(ctx, op, url, &out); err != nil {
		return ports.StalenessInfo{}, err
	}
	return stalenessFromPayload(out), nil
}

func stalenessFromPayload(p stalenessPayload) ports.StalenessInfo {
	return ports.StalenessInfo{
		Exists:      p.Exists,
		SourceHash:  p.SourceHash,
		CurrentHash: p.CurrentHash,
		Identifier:  p.Identifier,
		CreatedAt:   p.CreatedAt,
	}
}

func (c *Client) get(ctx context.Context, op, url string, out interface{}) error {
	return c.do(ctx, op, http.MethodGet, url, nil, out)
}

func (c *Client) post(ctx context.Context, op, url string, body, out interface{}) error {
	return c.do(ctx, op, http.MethodPost, url, body, out)
}

func (c *Client) do(ctx context.Context, op, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ports.RemoteError{Operation: op, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(op, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ports.RemoteError{Operation: op, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}

// decodeError maps a non-2xx response to the error taxonomy:
// 422 with field errors becomes a ValidationError, everything else a
// RemoteError with the most specific message the server provided.
func decodeError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var payload errorPayload
	if err := json.Unmarshal(data, &payload); err == nil {
		if resp.StatusCode == http.StatusUnprocessableEntity && len(payload.FieldErrors) > 0 {
			fieldErrors := make([]ports.FieldError, 0, len(payload.FieldErrors))
			for _, fe := range payload.FieldErrors {
				fieldErrors = append(fieldErrors, ports.FieldError{Field: fe.Field, Message: fe.Message})
			}
			return &ports.ValidationError{FieldErrors: fieldErrors}
		}
		if payload.Error != "" {
			return &ports.RemoteError{Operation: op, StatusCode: resp.StatusCode, Message: payload.Error}
		}
	}
	return &ports.RemoteError{Operation: op, StatusCode: resp.StatusCode, Message: resp.Status}
}

// Ensure Client implements the port.
var _ ports.OrderService = (*Client)(nil)
