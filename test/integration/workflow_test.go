//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/signwerk/orderprep/internal/adapters/logging"
	"github.com/signwerk/orderprep/internal/adapters/orderservice"
	"github.com/signwerk/orderprep/internal/domain/step"
	"github.com/signwerk/orderprep/internal/domain/workflow"
	"github.com/signwerk/orderprep/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrderServer is an in-memory order service backend. It tracks one
// order's data hash and the artifacts created against it, so staleness
// probes behave like the real service: editing the order changes the
// hash and existing artifacts start reporting the old one.
type fakeOrderServer struct {
	mu          sync.Mutex
	paymentType string
	dataHash    string
	artifacts   map[string]string // artifact kind -> source hash at creation
	taskCount   int
	ambiguous   []map[string]interface{}
	filed       bool
}

func newFakeOrderServer() *fakeOrderServer {
	return &fakeOrderServer{
		paymentType: "invoice",
		dataHash:    "h1",
		artifacts:   make(map[string]string),
	}
}

// editOrder simulates the office changing order data after artifacts
// were produced.
func (f *fakeOrderServer) editOrder(newHash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataHash = newHash
}

func (f *fakeOrderServer) handler() http.Handler {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	staleness := func(kind string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			sourceHash, exists := f.artifacts[kind]
			resp := map[string]interface{}{
				"exists":      exists,
				"sourceHash":  sourceHash,
				"currentHash": f.dataHash,
			}
			if kind == "tasks" {
				resp["taskCount"] = f.taskCount
			}
			writeJSON(w, resp)
		}
	}

	mux.HandleFunc("GET /api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, map[string]interface{}{
			"id":          r.PathValue("id"),
			"reference":   "2026-0042",
			"paymentType": f.paymentType,
		})
	})

	mux.HandleFunc("POST /api/orders/{id}/validate", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]interface{}{"cleanedRowCount": 2})
	})

	mux.HandleFunc("GET /api/orders/{id}/estimate/staleness", staleness("estimate"))
	mux.HandleFunc("POST /api/orders/{id}/estimate", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.artifacts["estimate"] = f.dataHash
		writeJSON(w, map[string]interface{}{"identifier": "EST-100", "sourceHash": f.dataHash})
	})

	mux.HandleFunc("GET /api/orders/{id}/documents/staleness", staleness("documents"))
	mux.HandleFunc("POST /api/orders/{id}/documents", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.artifacts["documents"] = f.dataHash
		writeJSON(w, map[string]interface{}{
			"urls":       []string{"https://files.local/confirmation.pdf"},
			"sourceHash": f.dataHash,
		})
	})

	mux.HandleFunc("GET /api/orders/{id}/accounting-document/staleness", staleness("accountingDocument"))
	mux.HandleFunc("POST /api/orders/{id}/accounting-document/download", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.artifacts["accountingDocument"] = f.dataHash
		writeJSON(w, map[string]interface{}{
			"url":        "https://files.local/estimate.pdf",
			"sourceHash": f.dataHash,
		})
	})

	mux.HandleFunc("GET /api/orders/{id}/tasks/staleness", staleness("tasks"))
	mux.HandleFunc("POST /api/orders/{id}/tasks", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if len(f.ambiguous) > 0 {
			writeJSON(w, map[string]interface{}{"ambiguousItems": f.ambiguous})
			return
		}
		f.artifacts["tasks"] = f.dataHash
		f.taskCount = 7
		writeJSON(w, map[string]interface{}{"taskCount": 7, "sourceHash": f.dataHash})
	})

	mux.HandleFunc("POST /api/orders/{id}/tasks/resolutions", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.ambiguous = nil
		f.artifacts["tasks"] = f.dataHash
		f.taskCount = 9
		writeJSON(w, map[string]interface{}{"taskCount": 9, "sourceHash": f.dataHash})
	})

	mux.HandleFunc("POST /api/orders/{id}/filing", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.filed = true
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func newCoordinatorAgainst(t *testing.T, srv *httptest.Server) *workflow.Coordinator {
	t.Helper()

	client := orderservice.NewClient(srv.URL, orderservice.WithToken("test-token"))
	coord := workflow.NewCoordinator(client, logging.NewNopLogger())
	require.NoError(t, coord.Open(context.Background(), "ord-42"))
	t.Cleanup(coord.Close)
	return coord
}

func TestWorkflow_FullPipelineOverHTTP(t *testing.T) {
	t.Parallel()

	fake := newFakeOrderServer()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	coord := newCoordinatorAgainst(t, srv)
	ctx := context.Background()

	// Open already validated the order.
	v, err := coord.View(step.IDValidate)
	require.NoError(t, err)
	assert.Equal(t, step.StatusCompleted, v.Status)
	assert.Equal(t, "✓ Order validated (2 empty rows removed)", v.Message)

	for _, id := range []step.ID{step.IDEstimate, step.IDDocuments, step.IDAccountingDocument, step.IDTasks, step.IDFiling} {
		require.NoError(t, coord.RunStep(ctx, id), "step %s", id)
	}

	for _, view := range coord.Views() {
		assert.Equal(t, step.StatusCompleted, view.Status, "step %s", view.ID)
	}

	tasks, err := coord.View(step.IDTasks)
	require.NoError(t, err)
	assert.Equal(t, "✓ 7 tasks exist", tasks.Message)
	assert.True(t, fake.filed)
}

func TestWorkflow_OrderEditRegressesHardArtifactsOnly(t *testing.T) {
	t.Parallel()

	fake := newFakeOrderServer()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	coord := newCoordinatorAgainst(t, srv)
	ctx := context.Background()

	for _, id := range []step.ID{step.IDEstimate, step.IDDocuments, step.IDAccountingDocument, step.IDTasks} {
		require.NoError(t, coord.RunStep(ctx, id))
	}

	fake.editOrder("h2")
	coord.RefreshAll(ctx)

	estimate, err := coord.View(step.IDEstimate)
	require.NoError(t, err)
	assert.Equal(t, step.StatusPending, estimate.Status)
	assert.Equal(t, "⚠ Estimate is stale — order data has changed", estimate.Message)

	tasks, err := coord.View(step.IDTasks)
	require.NoError(t, err)
	assert.Equal(t, step.StatusCompleted, tasks.Status)
	assert.Equal(t, "⚠ 7 tasks may be outdated (order data changed)", tasks.Message)
}

func TestWorkflow_AmbiguousItemsResolvedOverHTTP(t *testing.T) {
	t.Parallel()

	fake := newFakeOrderServer()
	fake.ambiguous = []map[string]interface{}{
		{
			"lineId":      "line-3",
			"description": "Channel letters, 60cm",
			"candidates":  []string{"front-lit", "halo-lit"},
			"suggested":   "front-lit",
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	coord := newCoordinatorAgainst(t, srv)
	ctx := context.Background()

	for _, id := range []step.ID{step.IDEstimate, step.IDDocuments, step.IDAccountingDocument} {
		require.NoError(t, coord.RunStep(ctx, id))
	}
	require.NoError(t, coord.RunStep(ctx, step.IDTasks))

	res := coord.Resolution()
	require.True(t, res.Open())
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Channel letters, 60cm", res.Items[0].Description)

	require.NoError(t, coord.Resolve(ctx, []ports.Resolution{{LineID: "line-3", Recipe: "halo-lit"}}))

	tasks, err := coord.View(step.IDTasks)
	require.NoError(t, err)
	assert.Equal(t, step.StatusCompleted, tasks.Status)
	assert.Equal(t, "✓ 9 tasks exist", tasks.Message)
	assert.False(t, coord.Resolution().Open())
}

func TestWorkflow_CashOrderAutoSkipsEstimate(t *testing.T) {
	t.Parallel()

	fake := newFakeOrderServer()
	fake.paymentType = "cash"
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	coord := newCoordinatorAgainst(t, srv)

	estimate, err := coord.View(step.IDEstimate)
	require.NoError(t, err)
	assert.Equal(t, step.StatusSkipped, estimate.Status)
	assert.Equal(t, "Skipped automatically (cash order)", estimate.Message)

	// Documents depend on the estimate slot; the skip satisfies it.
	require.NoError(t, coord.RunStep(context.Background(), step.IDDocuments))
}
