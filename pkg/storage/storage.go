// Package storage defines the logbook persistence contracts used by the ADIF
// codec, the CLI and the REST API, together with in-memory and Pebble backed
// implementations. A PostgreSQL implementation lives in the postgres
// subpackage.
package storage

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/qsolog/pkg/qso"
)

var (
	// ErrNotFound is returned when a contact or station does not exist.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by a store after Close.
	ErrClosed = errors.New("storage closed")
	// ErrScratchDone is returned by a scratch transaction after Discard.
	ErrScratchDone = errors.New("scratch transaction already discarded")
)

// DuplicateQuery selects contacts with the same callsign, band and mode whose
// timestamp lies in the closed interval [From, To].
type DuplicateQuery struct {
	Callsign string
	Band     string
	Mode     string
	From     time.Time
	To       time.Time
}

// Matches reports whether c satisfies the query. Text comparisons are exact.
func (q DuplicateQuery) Matches(c qso.Contact) bool {
	if c.Callsign != q.Callsign || c.Band != q.Band || c.Mode != q.Mode {
		return false
	}
	ts, ok := c.Timestamp.Get()
	if !ok {
		return false
	}
	return !ts.Before(q.From) && !ts.After(q.To)
}

// ContactStore is the part of a logbook the ADIF importer writes through.
type ContactStore interface {
	// FindDuplicate returns the first contact matching q, if any.
	FindDuplicate(ctx context.Context, q DuplicateQuery) (qso.Contact, bool, error)
	// Create persists c and assigns c.ID when it is empty.
	Create(ctx context.Context, c *qso.Contact) error
}

// Scratch is an isolated, non-committing view of a logbook. Writes are
// visible to reads on the same Scratch only and are dropped by Discard.
type Scratch interface {
	ContactStore
	Discard(ctx context.Context) error
}

// ScratchProvider opens scratch transactions.
type ScratchProvider interface {
	BeginScratch(ctx context.Context) (Scratch, error)
}

// Logbook is a complete contact and station store.
type Logbook interface {
	ContactStore
	ScratchProvider

	Get(ctx context.Context, id string) (qso.Contact, error)
	// List returns every contact, newest first.
	List(ctx context.Context) ([]qso.Contact, error)
	Update(ctx context.Context, c *qso.Contact) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	Stations(ctx context.Context) ([]qso.StationProfile, error)
	PutStation(ctx context.Context, s *qso.StationProfile) error
	// EnsureDefaultStations seeds the default profiles into a logbook that
	// has none.
	EnsureDefaultStations(ctx context.Context) error

	Close() error
}

// DefaultStation returns the logbook's default station profile.
func DefaultStation(ctx context.Context, lb Logbook) (*qso.StationProfile, error) {
	stations, err := lb.Stations(ctx)
	if err != nil {
		return nil, err
	}
	s, ok := qso.DefaultStation(stations)
	if !ok {
		return nil, errors.Wrap(ErrNotFound, "default station")
	}
	return &s, nil
}
