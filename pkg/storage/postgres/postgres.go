// Package postgres implements storage.Logbook on PostgreSQL.
//
// The schema is managed with goose migrations embedded in the binary. Preview
// imports run inside a transaction that is always rolled back.
package postgres

import (
	"context"
	"embed"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/qsolog/pkg/qso"
	"github.com/ssargent/qsolog/pkg/storage"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Storage is a PostgreSQL backed logbook.
type Storage struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Open connects to url, applies pending migrations and returns the logbook.
func Open(ctx context.Context, url string, log *zap.Logger) (*Storage, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	if err := Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	return &Storage{pool: pool, log: log}, nil
}

// Migrate brings the schema up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(zap.NewStdLog(log.Named("goose")))
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "set migration dialect")
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return errors.Wrap(goose.UpContext(ctx, db, "migrations"), "apply migrations")
}

const contactColumns = `id, ts, callsign, band, mode, frequency_mhz, rst_sent, rst_received, tx_power_w,
	operator_callsign, grid, dxcc, qth, rig, antenna, contest_name, serial_sent, serial_received,
	duration_sec, notes, qsl_sent, qsl_sent_date, qsl_received, qsl_received_date, qsl_method, station_id`

func (s *Storage) FindDuplicate(ctx context.Context, q storage.DuplicateQuery) (qso.Contact, bool, error) {
	return findDuplicate(ctx, s.pool, q)
}

func (s *Storage) Create(ctx context.Context, c *qso.Contact) error {
	return insertContact(ctx, s.pool, c)
}

func (s *Storage) Get(ctx context.Context, id string) (qso.Contact, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return qso.Contact{}, storage.ErrNotFound
	}
	return c, err
}

func (s *Storage) List(ctx context.Context) ([]qso.Contact, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY ts DESC NULLS LAST, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list contacts")
	}
	defer rows.Close()

	var out []qso.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Storage) Update(ctx context.Context, c *qso.Contact) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE contacts SET ts = $2, callsign = $3, band = $4, mode = $5, frequency_mhz = $6,
			rst_sent = $7, rst_received = $8, tx_power_w = $9, operator_callsign = $10, grid = $11,
			dxcc = $12, qth = $13, rig = $14, antenna = $15, contest_name = $16, serial_sent = $17,
			serial_received = $18, duration_sec = $19, notes = $20, qsl_sent = $21, qsl_sent_date = $22,
			qsl_received = $23, qsl_received_date = $24, qsl_method = $25, station_id = $26
		WHERE id = $1`, contactArgs(c)...)
	if err != nil {
		return errors.Wrapf(err, "update contact %s", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete contact %s", id)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM contacts`).Scan(&n)
	return n, errors.Wrap(err, "count contacts")
}

func (s *Storage) Stations(ctx context.Context) ([]qso.StationProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, operator_callsign, rig, antenna, default_band, default_mode, default_power_w, is_default
		FROM stations ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list stations")
	}
	defer rows.Close()

	var out []qso.StationProfile
	for rows.Next() {
		var st qso.StationProfile
		if err := rows.Scan(&st.ID, &st.Name, &st.OperatorCallsign, &st.Rig, &st.Antenna,
			&st.DefaultBand, &st.DefaultMode, &st.DefaultPowerW, &st.IsDefault); err != nil {
			return nil, errors.Wrap(err, "scan station")
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Storage) PutStation(ctx context.Context, st *qso.StationProfile) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin station tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()
	return upsertStation(ctx, tx, st)
}

func (s *Storage) EnsureDefaultStations(ctx context.Context) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin station tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var n int
	if err = tx.QueryRow(ctx, `SELECT count(*) FROM stations`).Scan(&n); err != nil {
		return errors.Wrap(err, "count stations")
	}
	if n > 0 {
		return nil
	}
	for _, st := range qso.DefaultStations() {
		if err = upsertStation(ctx, tx, &st); err != nil {
			return err
		}
	}
	s.log.Info("seeded default station profiles")
	return nil
}

// BeginScratch opens a transaction that Discard rolls back.
func (s *Storage) BeginScratch(ctx context.Context) (storage.Scratch, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin scratch tx")
	}
	return &scratch{tx: tx}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

type scratch struct {
	tx   pgx.Tx
	done bool
}

func (x *scratch) FindDuplicate(ctx context.Context, q storage.DuplicateQuery) (qso.Contact, bool, error) {
	if x.done {
		return qso.Contact{}, false, storage.ErrScratchDone
	}
	return findDuplicate(ctx, x.tx, q)
}

// Create inserts c inside a savepoint. A failed insert is rolled back to the
// savepoint and leaves the scratch usable for later records.
func (x *scratch) Create(ctx context.Context, c *qso.Contact) error {
	if x.done {
		return storage.ErrScratchDone
	}
	sp, err := x.tx.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin savepoint")
	}
	if err := insertContact(ctx, sp, c); err != nil {
		if rerr := sp.Rollback(ctx); rerr != nil {
			return errors.CombineErrors(err, errors.Wrap(rerr, "rollback savepoint"))
		}
		return err
	}
	return errors.Wrap(sp.Commit(ctx), "release savepoint")
}

func (x *scratch) Discard(ctx context.Context) error {
	if x.done {
		return storage.ErrScratchDone
	}
	x.done = true
	return x.tx.Rollback(ctx)
}

func findDuplicate(ctx context.Context, q querier, dq storage.DuplicateQuery) (qso.Contact, bool, error) {
	row := q.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts
		WHERE callsign = $1 AND band = $2 AND mode = $3 AND ts BETWEEN $4 AND $5
		ORDER BY ts, id LIMIT 1`, dq.Callsign, dq.Band, dq.Mode, dq.From, dq.To)
	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return qso.Contact{}, false, nil
	}
	if err != nil {
		return qso.Contact{}, false, errors.Wrap(err, "find duplicate")
	}
	return c, true, nil
}

func insertContact(ctx context.Context, q querier, c *qso.Contact) error {
	if c.ID == "" {
		c.ID = ksuid.New().String()
	}
	_, err := q.Exec(ctx, `INSERT INTO contacts (`+contactColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26)`, contactArgs(c)...)
	return errors.Wrap(err, "insert contact")
}

func upsertStation(ctx context.Context, q querier, st *qso.StationProfile) error {
	if st.ID == "" {
		st.ID = ksuid.New().String()
	}
	if st.IsDefault {
		if _, err := q.Exec(ctx, `UPDATE stations SET is_default = FALSE WHERE id <> $1`, st.ID); err != nil {
			return errors.Wrap(err, "clear default station")
		}
	}
	_, err := q.Exec(ctx, `
		INSERT INTO stations (id, name, operator_callsign, rig, antenna, default_band, default_mode, default_power_w, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, operator_callsign = EXCLUDED.operator_callsign,
			rig = EXCLUDED.rig, antenna = EXCLUDED.antenna, default_band = EXCLUDED.default_band,
			default_mode = EXCLUDED.default_mode, default_power_w = EXCLUDED.default_power_w,
			is_default = EXCLUDED.is_default`,
		st.ID, st.Name, st.OperatorCallsign, st.Rig, st.Antenna, st.DefaultBand, st.DefaultMode, st.DefaultPowerW, st.IsDefault)
	return errors.Wrap(err, "upsert station")
}

func contactArgs(c *qso.Contact) []any {
	return []any{
		c.ID, arg(c.Timestamp), c.Callsign, c.Band, c.Mode, arg(c.FrequencyMHz), c.RSTSent, c.RSTReceived,
		arg(c.TxPowerW), c.OperatorCallsign, c.Grid, c.DXCC, c.QTH, c.Rig, c.Antenna, c.ContestName,
		arg(c.SerialSent), arg(c.SerialReceived), arg(c.DurationSec), c.Notes, c.QSLSent, arg(c.QSLSentDate),
		c.QSLReceived, arg(c.QSLReceivedDate), c.QSLMethod, c.StationID,
	}
}

// arg maps an absent Optional to SQL NULL.
func arg[T any](o qso.Optional[T]) any {
	if v, ok := o.Get(); ok {
		return v
	}
	return nil
}

func opt[T any](p *T) qso.Optional[T] {
	if p == nil {
		return qso.None[T]()
	}
	return qso.Some(*p)
}

func scanContact(row pgx.Row) (qso.Contact, error) {
	var (
		c                     qso.Contact
		ts, sentAt, rcvdAt    *time.Time
		freq, power           *float64
		stx, srx, durationSec *int
	)
	err := row.Scan(&c.ID, &ts, &c.Callsign, &c.Band, &c.Mode, &freq, &c.RSTSent, &c.RSTReceived, &power,
		&c.OperatorCallsign, &c.Grid, &c.DXCC, &c.QTH, &c.Rig, &c.Antenna, &c.ContestName, &stx, &srx,
		&durationSec, &c.Notes, &c.QSLSent, &sentAt, &c.QSLReceived, &rcvdAt, &c.QSLMethod, &c.StationID)
	if err != nil {
		return qso.Contact{}, err
	}
	if ts != nil {
		c.Timestamp = qso.Some(ts.UTC())
	}
	if sentAt != nil {
		c.QSLSentDate = qso.Some(sentAt.UTC())
	}
	if rcvdAt != nil {
		c.QSLReceivedDate = qso.Some(rcvdAt.UTC())
	}
	c.FrequencyMHz = opt(freq)
	c.TxPowerW = opt(power)
	c.SerialSent = opt(stx)
	c.SerialReceived = opt(srx)
	c.DurationSec = opt(durationSec)
	return c, nil
}
