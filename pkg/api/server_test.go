package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ssargent/qsolog/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutes_RequireAPIKey(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})

	paths := []string{
		"/api/v1/health",
		"/api/v1/contacts",
		"/api/v1/stats",
		"/api/v1/stations",
		"/api/v1/export/adif",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		ts.handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRoutes_MetricsUnprotected(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})
	ts.do(t, http.MethodGet, "/api/v1/health", "")
	ts.do(t, http.MethodPost, "/api/v1/import", k1abcADIF)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "qsolog_http_requests_total")
	assert.Contains(t, body, "qsolog_import_records_total")
	assert.Contains(t, body, "qsolog_contacts_total 1")
}

func TestRoutes_NotFound(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})
	w := ts.do(t, http.MethodGet, "/api/v1/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_CORSPreflight(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/contacts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetrics_RecordImport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	ts := newTestServer(t, ServerConfig{})
	m.RecordImport(ts.codec.Import(context.Background(), k1abcADIF, ts.logbook))
	m.RecordImport(ts.codec.Import(context.Background(), "junk", ts.logbook))

	w := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()

	for _, line := range []string{
		`qsolog_import_records_total{mode="import",outcome="imported"} 1`,
		`qsolog_import_records_total{mode="import",outcome="error"} 1`,
		`qsolog_import_runs_total{mode="import",status="success"} 1`,
		`qsolog_import_runs_total{mode="import",status="error"} 1`,
	} {
		assert.Contains(t, body, line)
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", ServerConfig{Bind: "127.0.0.1", Port: 8080}.Addr())
	assert.Equal(t, ":9000", ServerConfig{Port: 9000}.Addr())
	assert.Equal(t, "[::1]:80", ServerConfig{Bind: "::1", Port: 80}.Addr())
}

func TestNewServer_Defaults(t *testing.T) {
	s := NewServer(storage.NewMemoryStorage(), ServerConfig{}, Options{})
	assert.NotNil(t, s.codec)
	assert.NotNil(t, s.registry)
	assert.NotNil(t, s.log)
	assert.Equal(t, int64(defaultMaxImportBytes), s.config.MaxImportBytes)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	lb := storage.NewMemoryStorage()
	s := NewServer(lb, ServerConfig{Bind: "127.0.0.1", Port: 0}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAndServe_BadAddress(t *testing.T) {
	s := NewServer(storage.NewMemoryStorage(), ServerConfig{Bind: "256.0.0.1", Port: 1}, Options{})

	err := s.ListenAndServe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}
