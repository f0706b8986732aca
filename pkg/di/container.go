// Package di provides dependency injection container
package di

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/qsolog/pkg/api"
	"github.com/ssargent/qsolog/pkg/config"
	"github.com/ssargent/qsolog/pkg/storage"
	"github.com/ssargent/qsolog/pkg/storage/postgres"
	"go.uber.org/zap"
)

// LogbookOpener opens the logbook a configuration points at.
type LogbookOpener interface {
	OpenLogbook(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Logbook, error)
}

// LogbookOpenerFunc adapts a function to LogbookOpener.
type LogbookOpenerFunc func(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Logbook, error)

func (f LogbookOpenerFunc) OpenLogbook(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Logbook, error) {
	return f(ctx, cfg, log)
}

// Container holds all the dependencies for the application
type Container struct {
	logbookOpener LogbookOpener
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		logbookOpener: LogbookOpenerFunc(OpenLogbook),
		serverFactory: api.NewServerFactory(),
	}
}

// GetLogbookOpener returns the logbook opener
func (c *Container) GetLogbookOpener() LogbookOpener {
	return c.logbookOpener
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetLogbookOpener allows overriding the logbook opener (for testing)
func (c *Container) SetLogbookOpener(opener LogbookOpener) {
	c.logbookOpener = opener
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// OpenLogbook opens the configured backend and seeds the default station
// profiles into a logbook that has none.
func OpenLogbook(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Logbook, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		lb  storage.Logbook
		err error
	)
	switch backend := strings.ToLower(cfg.Storage.Backend); backend {
	case config.BackendMemory:
		lb = storage.NewMemoryStorage()
	case config.BackendPebble, "":
		lb, err = storage.NewPebbleStorage(cfg.PebbleDir(), storage.PebbleOptions{
			Sync:   cfg.Storage.Sync,
			Logger: log.Named("pebble"),
		})
	case config.BackendPostgres:
		lb, err = postgres.Open(ctx, cfg.Storage.DatabaseURL, log.Named("postgres"))
	default:
		return nil, errors.Newf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := lb.EnsureDefaultStations(ctx); err != nil {
		_ = lb.Close()
		return nil, errors.Wrap(err, "seed default stations")
	}
	log.Debug("logbook opened", zap.String("backend", cfg.Storage.Backend))
	return lb, nil
}
