package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ssargent/qsolog/pkg/api"
	"github.com/ssargent/qsolog/pkg/config"
	"github.com/ssargent/qsolog/pkg/qso"
	"github.com/ssargent/qsolog/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type stubServerFactory struct{ calls int }

func (f *stubServerFactory) CreateServer(lb storage.Logbook, cfg api.ServerConfig, opts api.Options) api.ServerStarter {
	f.calls++
	return api.NewServer(lb, cfg, opts)
}

func TestContainer_Defaults(t *testing.T) {
	c := NewContainer()
	assert.NotNil(t, c.GetLogbookOpener())
	assert.IsType(t, &api.DefaultServerFactory{}, c.GetServerFactory())
}

func TestContainer_Overrides(t *testing.T) {
	c := NewContainer()

	mem := storage.NewMemoryStorage()
	c.SetLogbookOpener(LogbookOpenerFunc(func(context.Context, *config.Config, *zap.Logger) (storage.Logbook, error) {
		return mem, nil
	}))
	lb, err := c.GetLogbookOpener().OpenLogbook(context.Background(), config.DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Same(t, mem, lb)

	factory := &stubServerFactory{}
	c.SetServerFactory(factory)
	c.GetServerFactory().CreateServer(mem, api.ServerConfig{}, api.Options{})
	assert.Equal(t, 1, factory.calls)
}

func TestOpenLogbook_Memory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = config.BackendMemory

	lb, err := OpenLogbook(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer lb.Close()

	assert.IsType(t, &storage.MemoryStorage{}, lb)
	stations, err := lb.Stations(context.Background())
	require.NoError(t, err)
	assert.Len(t, stations, len(qso.DefaultStations()))
}

func TestOpenLogbook_Pebble(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	lb, err := OpenLogbook(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	c := qso.Contact{Callsign: "K1ABC", Band: "20m", Mode: "SSB"}
	require.NoError(t, lb.Create(ctx, &c))
	require.NoError(t, lb.Close())

	_, err = os.Stat(filepath.Join(cfg.DataDir, "logbook"))
	require.NoError(t, err)

	// Reopening keeps contacts and does not seed a second set of stations.
	lb, err = OpenLogbook(ctx, cfg, nil)
	require.NoError(t, err)
	defer lb.Close()

	n, err := lb.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stations, err := lb.Stations(ctx)
	require.NoError(t, err)
	assert.Len(t, stations, len(qso.DefaultStations()))
}

func TestOpenLogbook_Errors(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Storage.Backend = "sqlite"
		_, err := OpenLogbook(context.Background(), cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown storage backend")
	})

	t.Run("bad postgres url", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Storage.Backend = config.BackendPostgres
		cfg.Storage.DatabaseURL = "postgres://%zz"
		_, err := OpenLogbook(context.Background(), cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse database url")
	})
}
