// Package api serves a logbook over HTTP.
//
// Every route under /api/v1 requires the X-API-Key header when an API key is
// configured. /metrics is left open for scraping.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ssargent/qsolog/pkg/adif"
	"github.com/ssargent/qsolog/pkg/catalog"
	"github.com/ssargent/qsolog/pkg/qso"
	"github.com/ssargent/qsolog/pkg/storage"
	"go.uber.org/zap"
)

const (
	defaultMaxImportBytes = 32 << 20
	metricsInterval       = 30 * time.Second
	shutdownTimeout       = 10 * time.Second
)

// Options carries the collaborators of a Server. Zero values select defaults.
type Options struct {
	Codec   *adif.Codec
	Catalog *catalog.Catalog
	Logger  *zap.Logger
	// Registry receives the API metrics and backs /metrics. Defaults to a
	// fresh registry.
	Registry *prometheus.Registry
	Now      func() time.Time
}

// Server holds the API server state
type Server struct {
	logbook  storage.Logbook
	codec    *adif.Codec
	catalog  *catalog.Catalog
	entries  *qso.EntryValidator
	config   ServerConfig
	metrics  *Metrics
	registry *prometheus.Registry
	log      *zap.Logger
	now      func() time.Time
}

// NewServer creates a new API server
func NewServer(logbook storage.Logbook, config ServerConfig, opts Options) *Server {
	s := &Server{
		logbook:  logbook,
		codec:    opts.Codec,
		catalog:  opts.Catalog,
		config:   config,
		registry: opts.Registry,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.codec == nil {
		s.codec = adif.NewCodec(adif.Options{Catalog: s.catalog, Logger: s.log})
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.config.MaxImportBytes <= 0 {
		s.config.MaxImportBytes = defaultMaxImportBytes
	}
	s.entries = qso.NewEntryValidator(s.catalog)
	s.metrics = NewMetrics(s.registry)
	return s
}

// Routes builds the HTTP handler for the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	m := s.metrics
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))
		r.Get("/catalog", m.InstrumentHandler("GET", "/api/v1/catalog", s.handleCatalog))

		r.Get("/contacts", m.InstrumentHandler("GET", "/api/v1/contacts", s.handleListContacts))
		r.Post("/contacts", m.InstrumentHandler("POST", "/api/v1/contacts", s.handleCreateContact))
		r.Get("/contacts/{id}", m.InstrumentHandler("GET", "/api/v1/contacts/{id}", s.handleGetContact))
		r.Put("/contacts/{id}", m.InstrumentHandler("PUT", "/api/v1/contacts/{id}", s.handleUpdateContact))
		r.Delete("/contacts/{id}", m.InstrumentHandler("DELETE", "/api/v1/contacts/{id}", s.handleDeleteContact))

		r.Post("/import", m.InstrumentHandler("POST", "/api/v1/import", s.handleImport))
		r.Get("/export/adif", m.InstrumentHandler("GET", "/api/v1/export/adif", s.handleExportADIF))
		r.Get("/export/csv", m.InstrumentHandler("GET", "/api/v1/export/csv", s.handleExportCSV))
		r.Get("/stats", m.InstrumentHandler("GET", "/api/v1/stats", s.handleStats))

		r.Get("/stations", m.InstrumentHandler("GET", "/api/v1/stations", s.handleListStations))
		r.Post("/stations", m.InstrumentHandler("POST", "/api/v1/stations", s.handlePutStation))
	})

	return r
}

// Addr is the listen address built from Bind and Port.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.startMetricsUpdater(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting qsolog REST API server",
			zap.String("addr", srv.Addr),
			zap.String("metrics", fmt.Sprintf("http://%s/metrics", srv.Addr)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down REST API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

// startMetricsUpdater periodically refreshes the logbook size gauge
func (s *Server) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		s.refreshContactGauge(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) refreshContactGauge(ctx context.Context) {
	n, err := s.logbook.Count(ctx)
	if err != nil {
		s.log.Warn("count contacts", zap.Error(err))
		return
	}
	s.metrics.SetContacts(n)
}
