package storage

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/qsolog/pkg/qso"
)

// MemoryStorage is a Logbook held entirely in memory. It is used by tests and
// by the CLI when the configured backend is "memory".
type MemoryStorage struct {
	mu       sync.RWMutex
	contacts map[string]qso.Contact
	stations map[string]qso.StationProfile
	closed   bool
}

// NewMemoryStorage returns an empty in-memory logbook.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		contacts: make(map[string]qso.Contact),
		stations: make(map[string]qso.StationProfile),
	}
}

func (s *MemoryStorage) FindDuplicate(_ context.Context, q DuplicateQuery) (qso.Contact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return qso.Contact{}, false, ErrClosed
	}

	// Sort by ID so "first match" is stable across calls.
	ids := slices.Sorted(maps.Keys(s.contacts))
	for _, id := range ids {
		if c := s.contacts[id]; q.Matches(c) {
			return c, true, nil
		}
	}
	return qso.Contact{}, false, nil
}

func (s *MemoryStorage) Create(_ context.Context, c *qso.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if c.ID == "" {
		c.ID = ksuid.New().String()
	}
	s.contacts[c.ID] = *c
	return nil
}

func (s *MemoryStorage) Get(_ context.Context, id string) (qso.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return qso.Contact{}, ErrClosed
	}
	c, ok := s.contacts[id]
	if !ok {
		return qso.Contact{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStorage) List(_ context.Context) ([]qso.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := slices.Collect(maps.Values(s.contacts))
	slices.SortStableFunc(out, func(a, b qso.Contact) int {
		if n := qso.ByTimestampDesc(a, b); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStorage) Update(_ context.Context, c *qso.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.contacts[c.ID]; !ok {
		return ErrNotFound
	}
	s.contacts[c.ID] = *c
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(s.contacts, id)
	return nil
}

func (s *MemoryStorage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.contacts), nil
}

func (s *MemoryStorage) Stations(_ context.Context) ([]qso.StationProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := slices.Collect(maps.Values(s.stations))
	slices.SortFunc(out, func(a, b qso.StationProfile) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStorage) PutStation(_ context.Context, st *qso.StationProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.putStationLocked(st)
	return nil
}

func (s *MemoryStorage) putStationLocked(st *qso.StationProfile) {
	if st.ID == "" {
		st.ID = ksuid.New().String()
	}
	if st.IsDefault {
		for id, other := range s.stations {
			if other.IsDefault && id != st.ID {
				other.IsDefault = false
				s.stations[id] = other
			}
		}
	}
	s.stations[st.ID] = *st
}

func (s *MemoryStorage) EnsureDefaultStations(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(s.stations) > 0 {
		return nil
	}
	for _, st := range qso.DefaultStations() {
		s.putStationLocked(&st)
	}
	return nil
}

// BeginScratch snapshots the logbook. The snapshot is private to the returned
// Scratch and is thrown away on Discard.
func (s *MemoryStorage) BeginScratch(_ context.Context) (Scratch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	snap := NewMemoryStorage()
	maps.Copy(snap.contacts, s.contacts)
	maps.Copy(snap.stations, s.stations)
	return &memoryScratch{store: snap}, nil
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memoryScratch struct {
	store *MemoryStorage
}

func (m *memoryScratch) FindDuplicate(ctx context.Context, q DuplicateQuery) (qso.Contact, bool, error) {
	c, ok, err := m.store.FindDuplicate(ctx, q)
	if err == ErrClosed {
		return c, ok, ErrScratchDone
	}
	return c, ok, err
}

func (m *memoryScratch) Create(ctx context.Context, c *qso.Contact) error {
	if err := m.store.Create(ctx, c); err != nil {
		if err == ErrClosed {
			return ErrScratchDone
		}
		return err
	}
	return nil
}

func (m *memoryScratch) Discard(_ context.Context) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.store.closed {
		return ErrScratchDone
	}
	m.store.closed = true
	m.store.contacts = nil
	return nil
}
