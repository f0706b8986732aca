package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/qsolog/pkg/qso"
	"go.uber.org/zap"
)

// Key layout:
//
//	contact/<id>                                    JSON contact
//	dup/<CALL>\x00<BAND>\x00<MODE>\x00<ts><id>      empty, ts is 8 bytes big-endian
//	station/<id>                                    JSON station profile
var (
	contactPrefix = []byte("contact/")
	dupPrefix     = []byte("dup/")
	stationPrefix = []byte("station/")
)

const keySep = 0x00

// kvReader is the read surface shared by *pebble.DB and an indexed *pebble.Batch.
type kvReader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

// kvWriter is the write surface shared by *pebble.DB and *pebble.Batch.
type kvWriter interface {
	Set(key, value []byte, opts *pebble.WriteOptions) error
	Delete(key []byte, opts *pebble.WriteOptions) error
}

// PebbleOptions configures a PebbleStorage.
type PebbleOptions struct {
	// Sync forces an fsync on every committed write.
	Sync   bool
	Logger *zap.Logger
}

// PebbleStorage is a Logbook persisted in a local Pebble database.
type PebbleStorage struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	log       *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPebbleStorage opens or creates a logbook at path.
func NewPebbleStorage(path string, opts PebbleOptions) (*PebbleStorage, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	db, err := pebble.Open(path, &pebble.Options{Logger: log.Sugar()})
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble logbook at %s", path)
	}
	writeOpts := pebble.NoSync
	if opts.Sync {
		writeOpts = pebble.Sync
	}
	return &PebbleStorage{db: db, writeOpts: writeOpts, log: log}, nil
}

func (s *PebbleStorage) guard() (func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	return s.mu.RUnlock, nil
}

func (s *PebbleStorage) FindDuplicate(_ context.Context, q DuplicateQuery) (qso.Contact, bool, error) {
	release, err := s.guard()
	if err != nil {
		return qso.Contact{}, false, err
	}
	defer release()
	return findDuplicate(s.db, q)
}

func (s *PebbleStorage) Create(_ context.Context, c *qso.Contact) error {
	release, err := s.guard()
	if err != nil {
		return err
	}
	defer release()

	b := s.db.NewBatch()
	defer b.Close()
	if err := putContact(b, c, nil); err != nil {
		return err
	}
	return errors.Wrap(b.Commit(s.writeOpts), "commit contact")
}

func (s *PebbleStorage) Get(_ context.Context, id string) (qso.Contact, error) {
	release, err := s.guard()
	if err != nil {
		return qso.Contact{}, err
	}
	defer release()
	return getContact(s.db, id)
}

func (s *PebbleStorage) List(_ context.Context) ([]qso.Contact, error) {
	release, err := s.guard()
	if err != nil {
		return nil, err
	}
	defer release()

	var out []qso.Contact
	err = scanPrefix(s.db, contactPrefix, func(_, value []byte) error {
		var c qso.Contact
		if err := json.Unmarshal(value, &c); err != nil {
			return errors.Wrap(err, "decode contact")
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Keys are KSUIDs, so the scan is already in creation order.
	slices.SortStableFunc(out, qso.ByTimestampDesc)
	return out, nil
}

func (s *PebbleStorage) Update(_ context.Context, c *qso.Contact) error {
	release, err := s.guard()
	if err != nil {
		return err
	}
	defer release()

	old, err := getContact(s.db, c.ID)
	if err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := putContact(b, c, &old); err != nil {
		return err
	}
	return errors.Wrap(b.Commit(s.writeOpts), "commit contact update")
}

func (s *PebbleStorage) Delete(_ context.Context, id string) error {
	release, err := s.guard()
	if err != nil {
		return err
	}
	defer release()

	old, err := getContact(s.db, id)
	if err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(contactKey(id), nil); err != nil {
		return err
	}
	if old.HasDuplicateKey() {
		if err := b.Delete(dupKey(old), nil); err != nil {
			return err
		}
	}
	return errors.Wrap(b.Commit(s.writeOpts), "commit contact delete")
}

func (s *PebbleStorage) Count(_ context.Context) (int, error) {
	release, err := s.guard()
	if err != nil {
		return 0, err
	}
	defer release()

	n := 0
	err = scanPrefix(s.db, contactPrefix, func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}

func (s *PebbleStorage) Stations(_ context.Context) ([]qso.StationProfile, error) {
	release, err := s.guard()
	if err != nil {
		return nil, err
	}
	defer release()
	return listStations(s.db)
}

func (s *PebbleStorage) PutStation(_ context.Context, st *qso.StationProfile) error {
	release, err := s.guard()
	if err != nil {
		return err
	}
	defer release()

	existing, err := listStations(s.db)
	if err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := putStation(b, existing, st); err != nil {
		return err
	}
	return errors.Wrap(b.Commit(s.writeOpts), "commit station")
}

func (s *PebbleStorage) EnsureDefaultStations(_ context.Context) error {
	release, err := s.guard()
	if err != nil {
		return err
	}
	defer release()

	existing, err := listStations(s.db)
	if err != nil || len(existing) > 0 {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	for _, st := range qso.DefaultStations() {
		if err := putStation(b, nil, &st); err != nil {
			return err
		}
	}
	s.log.Info("seeded default station profiles", zap.Int("count", len(qso.DefaultStations())))
	return errors.Wrap(b.Commit(s.writeOpts), "commit default stations")
}

// BeginScratch opens an indexed batch over the database. Reads through the
// scratch see committed data plus the scratch's own writes. The batch is
// never committed.
func (s *PebbleStorage) BeginScratch(_ context.Context) (Scratch, error) {
	release, err := s.guard()
	if err != nil {
		return nil, err
	}
	defer release()
	return &pebbleScratch{batch: s.db.NewIndexedBatch()}, nil
}

func (s *PebbleStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type pebbleScratch struct {
	mu    sync.Mutex
	batch *pebble.Batch
}

func (p *pebbleScratch) FindDuplicate(_ context.Context, q DuplicateQuery) (qso.Contact, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.batch == nil {
		return qso.Contact{}, false, ErrScratchDone
	}
	return findDuplicate(p.batch, q)
}

func (p *pebbleScratch) Create(_ context.Context, c *qso.Contact) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.batch == nil {
		return ErrScratchDone
	}
	return putContact(p.batch, c, nil)
}

func (p *pebbleScratch) Discard(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.batch == nil {
		return ErrScratchDone
	}
	err := p.batch.Close()
	p.batch = nil
	return err
}

func contactKey(id string) []byte {
	return append(slices.Clone(contactPrefix), id...)
}

func stationKey(id string) []byte {
	return append(slices.Clone(stationPrefix), id...)
}

func dupKeyPrefix(callsign, band, mode string) []byte {
	k := slices.Clone(dupPrefix)
	k = append(k, callsign...)
	k = append(k, keySep)
	k = append(k, band...)
	k = append(k, keySep)
	k = append(k, mode...)
	return append(k, keySep)
}

// appendTimestamp encodes t so that byte order matches time order, including
// times before 1970.
func appendTimestamp(k []byte, t time.Time) []byte {
	return binary.BigEndian.AppendUint64(k, uint64(t.UnixNano())^(1<<63))
}

func dupKey(c qso.Contact) []byte {
	k := dupKeyPrefix(c.Callsign, c.Band, c.Mode)
	k = appendTimestamp(k, c.Timestamp.OrZero())
	return append(k, c.ID...)
}

func findDuplicate(r kvReader, q DuplicateQuery) (qso.Contact, bool, error) {
	prefix := dupKeyPrefix(q.Callsign, q.Band, q.Mode)
	lower := appendTimestamp(slices.Clone(prefix), q.From)
	// UpperBound is exclusive; To is inclusive.
	upper := appendTimestamp(slices.Clone(prefix), q.To.Add(time.Nanosecond))

	iter, err := r.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return qso.Contact{}, false, errors.Wrap(err, "open duplicate index")
	}
	defer iter.Close()

	if !iter.First() {
		return qso.Contact{}, false, errors.Wrap(iter.Error(), "scan duplicate index")
	}
	id := string(iter.Key()[len(prefix)+8:])
	c, err := getContact(r, id)
	if err != nil {
		return qso.Contact{}, false, errors.Wrapf(err, "load duplicate %s", id)
	}
	return c, true, nil
}

func getContact(r kvReader, id string) (qso.Contact, error) {
	data, closer, err := r.Get(contactKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return qso.Contact{}, ErrNotFound
	}
	if err != nil {
		return qso.Contact{}, errors.Wrapf(err, "get contact %s", id)
	}
	defer closer.Close()

	var c qso.Contact
	if err := json.Unmarshal(data, &c); err != nil {
		return qso.Contact{}, errors.Wrapf(err, "decode contact %s", id)
	}
	return c, nil
}

// putContact writes c and its duplicate index entry, replacing old's entry.
func putContact(w kvWriter, c *qso.Contact, old *qso.Contact) error {
	if c.ID == "" {
		c.ID = ksuid.New().String()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode contact")
	}
	if old != nil && old.HasDuplicateKey() {
		if err := w.Delete(dupKey(*old), nil); err != nil {
			return err
		}
	}
	if err := w.Set(contactKey(c.ID), data, nil); err != nil {
		return err
	}
	if c.HasDuplicateKey() {
		return w.Set(dupKey(*c), nil, nil)
	}
	return nil
}

func listStations(r kvReader) ([]qso.StationProfile, error) {
	var out []qso.StationProfile
	err := scanPrefix(r, stationPrefix, func(_, value []byte) error {
		var st qso.StationProfile
		if err := json.Unmarshal(value, &st); err != nil {
			return errors.Wrap(err, "decode station")
		}
		out = append(out, st)
		return nil
	})
	return out, err
}

// putStation writes st and clears the default flag on any other station in
// existing when st is the default.
func putStation(w kvWriter, existing []qso.StationProfile, st *qso.StationProfile) error {
	if st.ID == "" {
		st.ID = ksuid.New().String()
	}
	if st.IsDefault {
		for _, other := range existing {
			if !other.IsDefault || other.ID == st.ID {
				continue
			}
			other.IsDefault = false
			data, err := json.Marshal(other)
			if err != nil {
				return errors.Wrap(err, "encode station")
			}
			if err := w.Set(stationKey(other.ID), data, nil); err != nil {
				return err
			}
		}
	}
	data, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "encode station")
	}
	return w.Set(stationKey(st.ID), data, nil)
}

func scanPrefix(r kvReader, prefix []byte, fn func(key, value []byte) error) error {
	upper := slices.Clone(prefix)
	upper[len(upper)-1]++
	iter, err := r.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return errors.Wrap(err, "open iterator")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}
