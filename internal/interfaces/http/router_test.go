package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Catalysis-Ingest/internal/application/ingest"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Catalysis-Ingest/internal/interfaces/http/handlers"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubService answers every call with fixed values.
type stubService struct {
	ingested []*ingest.IngestInput
}

func (s *stubService) Ingest(_ context.Context, in *ingest.IngestInput) (*ingest.IngestResult, error) {
	s.ingested = append(s.ingested, in)
	return &ingest.IngestResult{ID: "id-1", Source: in.Source, Format: "csv"}, nil
}

func (s *stubService) IngestAll(_ context.Context, inputs []*ingest.IngestInput) []ingest.BatchItem {
	out := make([]ingest.BatchItem, len(inputs))
	for i, in := range inputs {
		out[i] = ingest.BatchItem{Input: in, Result: &ingest.IngestResult{ID: "id"}}
	}
	return out
}

func (s *stubService) Get(_ context.Context, id string) (*ingest.Ingestion, error) {
	if id != "id-1" {
		return nil, errors.NotFound("ingestion not found")
	}
	return &ingest.Ingestion{ID: id, Status: "succeeded"}, nil
}

func (s *stubService) List(_ context.Context, in *ingest.ListInput) (*ingest.ListResult, error) {
	return &ingest.ListResult{Page: in.Page, PageSize: in.PageSize}, nil
}

func serve(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newFullRouter(t *testing.T) (*gin.Engine, *stubService) {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "router"}, nil)
	require.NoError(t, err)

	svc := &stubService{}
	r := NewRouter(RouterConfig{
		IngestHandler:  handlers.NewIngestHandler(svc, nil, 0),
		HealthHandler:  handlers.NewHealthHandler("test"),
		Metrics:        prometheus.NewIngestMetrics(collector),
		MetricsHandler: collector.Handler(),
	})
	return r, svc
}

func TestRouter_HealthEndpoints(t *testing.T) {
	r, _ := newFullRouter(t)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/readyz", nil).Code)
}

func TestRouter_IngestRoutes(t *testing.T) {
	r, svc := newFullRouter(t)

	rec := serve(r, http.MethodPost, "/api/v1/ingest", []byte(`{"source":"s3://raw/run.csv"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.ingested, 1)
	assert.Equal(t, "s3://raw/run.csv", svc.ingested[0].Source)

	rec = serve(r, http.MethodPost, "/api/v1/ingest/batch", []byte(`{"items":[{"source":"s3://raw/a.csv"}]}`))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/ingestions", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/ingestions/id-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/ingestions/other", nil).Code)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	r, _ := newFullRouter(t)
	rec := serve(r, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	r, _ := newFullRouter(t)
	serve(r, http.MethodGet, "/api/v1/ingestions/id-1", nil)

	rec := serve(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `router_http_requests_total{method="GET",path="/api/v1/ingestions/:id",status_code="200"} 1`)
}

func TestRouter_CustomMetricsPath(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "custom"}, nil)
	require.NoError(t, err)
	r := NewRouter(RouterConfig{MetricsHandler: collector.Handler(), MetricsPath: "/internal/metrics"})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/internal/metrics", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/metrics", nil).Code)
}

func TestRouter_NilHandlers(t *testing.T) {
	r := NewRouter(RouterConfig{})
	require.NotNil(t, r)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/api/v1/ingest", []byte(`{}`)).Code)
}

//Personal.AI order the ending
