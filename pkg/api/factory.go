package api

import (
	"context"

	"github.com/ssargent/qsolog/pkg/storage"
)

// ServerStarter runs the API until its context is cancelled.
type ServerStarter interface {
	ListenAndServe(ctx context.Context) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	CreateServer(logbook storage.Logbook, config ServerConfig, opts Options) ServerStarter
}

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServer creates a Server
func (f *DefaultServerFactory) CreateServer(logbook storage.Logbook, config ServerConfig, opts Options) ServerStarter {
	return NewServer(logbook, config, opts)
}
