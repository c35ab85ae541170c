package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/pipeline"
	"github.com/sells-group/invoice-cli/internal/store"
)

// stubStore implements the read side of store.Store used by the API.
type stubStore struct {
	store.Store
	counts    *model.StatusCounts
	raw       []model.RawInvoice
	processed []model.ProcessedInvoice
	err       error

	rawFilter  []model.ProcessingStatus
	syncFilter []model.SyncStatus
}

func (s *stubStore) CountByStatus(context.Context) (*model.StatusCounts, error) {
	return s.counts, s.err
}

func (s *stubStore) ListRawInvoices(_ context.Context, statuses ...model.ProcessingStatus) ([]model.RawInvoice, error) {
	s.rawFilter = statuses
	return s.raw, s.err
}

func (s *stubStore) ListProcessedInvoices(_ context.Context, statuses ...model.SyncStatus) ([]model.ProcessedInvoice, error) {
	s.syncFilter = statuses
	return s.processed, s.err
}

// blockingRunner holds a run open until release is closed.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   int
	err     error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingRunner) Run(context.Context) (*pipeline.Result, error) {
	b.calls++
	b.once.Do(func() { close(b.started) })
	<-b.release
	return &pipeline.Result{Summary: model.RunSummary{Synced: 4}}, b.err
}

func newTestAPI(st *stubStore, r pipelineRunner) (*apiServer, http.Handler) {
	api := newAPIServer(context.Background(), st, r)
	return api, api.routes([]string{"*"})
}

func doRequest(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestAPI_Health(t *testing.T) {
	_, h := newTestAPI(&stubStore{}, newBlockingRunner())

	rr := doRequest(h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestAPI_Status(t *testing.T) {
	st := &stubStore{counts: &model.StatusCounts{
		Raw:       map[model.ProcessingStatus]int{model.ProcessingStatusPending: 3},
		Processed: map[model.SyncStatus]int{model.SyncStatusSynced: 1},
	}}
	_, h := newTestAPI(st, newBlockingRunner())

	rr := doRequest(h, http.MethodGet, "/v1/status")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Running bool `json:"running"`
		Counts  struct {
			Raw       map[string]int `json:"raw"`
			Processed map[string]int `json:"processed"`
		} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Running)
	assert.Equal(t, 3, body.Counts.Raw["PENDING"])
	assert.Equal(t, 1, body.Counts.Processed["SYNCED"])
}

func TestAPI_Status_StoreError(t *testing.T) {
	_, h := newTestAPI(&stubStore{err: errors.New("db down")}, newBlockingRunner())

	rr := doRequest(h, http.MethodGet, "/v1/status")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db down")
}

func TestAPI_RawInvoices(t *testing.T) {
	st := &stubStore{raw: []model.RawInvoice{{ID: "r1", Status: model.ProcessingStatusFailed}}}
	_, h := newTestAPI(st, newBlockingRunner())

	rr := doRequest(h, http.MethodGet, "/v1/invoices/raw?status=failed")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []model.ProcessingStatus{model.ProcessingStatusFailed}, st.rawFilter)

	var body struct {
		Count    int                `json:"count"`
		Invoices []model.RawInvoice `json:"invoices"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "r1", body.Invoices[0].ID)

	rr = doRequest(h, http.MethodGet, "/v1/invoices/raw")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, st.rawFilter)

	rr = doRequest(h, http.MethodGet, "/v1/invoices/raw?status=DONE")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_ProcessedInvoices(t *testing.T) {
	st := &stubStore{processed: []model.ProcessedInvoice{{ID: "p1", SyncStatus: model.SyncStatusNotSynced}}}
	_, h := newTestAPI(st, newBlockingRunner())

	rr := doRequest(h, http.MethodGet, "/v1/invoices/processed?sync_status=NOT_SYNCED")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []model.SyncStatus{model.SyncStatusNotSynced}, st.syncFilter)

	rr = doRequest(h, http.MethodGet, "/v1/invoices/processed?sync_status=LOST")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_StartRun_RejectsConcurrentRun(t *testing.T) {
	runner := newBlockingRunner()
	api, h := newTestAPI(&stubStore{counts: &model.StatusCounts{}}, runner)

	rr := doRequest(h, http.MethodPost, "/v1/runs")
	require.Equal(t, http.StatusAccepted, rr.Code)
	<-runner.started

	rr = doRequest(h, http.MethodPost, "/v1/runs")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.True(t, api.running.Load())

	close(runner.release)
	api.wait()

	assert.False(t, api.running.Load())
	assert.Equal(t, 1, runner.calls)
	last := api.lastRun.Load()
	require.NotNil(t, last)
	require.NotNil(t, last.Result)
	assert.Equal(t, 4, last.Result.Summary.Synced)
	assert.False(t, last.FinishedAt.IsZero())
	assert.Empty(t, last.Error)
}

func TestAPI_StartRun_RecordsError(t *testing.T) {
	runner := newBlockingRunner()
	runner.err = errors.New("pipeline: processing: database is locked")
	close(runner.release)
	api, h := newTestAPI(&stubStore{}, runner)

	rr := doRequest(h, http.MethodPost, "/v1/runs")
	require.Equal(t, http.StatusAccepted, rr.Code)
	api.wait()

	last := api.lastRun.Load()
	require.NotNil(t, last)
	assert.Contains(t, last.Error, "database is locked")
}

func TestAPI_CORS(t *testing.T) {
	_, h := newTestAPI(&stubStore{}, newBlockingRunner())

	req := httptest.NewRequest(http.MethodOptions, "/v1/status", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
