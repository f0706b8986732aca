package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ssargent/qsolog/pkg/qso"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var base = time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

func contactAt(call string, ts time.Time) *qso.Contact {
	return &qso.Contact{Callsign: call, Band: "20m", Mode: "SSB", Timestamp: qso.Some(ts)}
}

func window(call string, ts time.Time) DuplicateQuery {
	return DuplicateQuery{Callsign: call, Band: "20m", Mode: "SSB", From: ts.Add(-120 * time.Second), To: ts.Add(120 * time.Second)}
}

func backends(t *testing.T) map[string]func(t *testing.T) Logbook {
	return map[string]func(t *testing.T) Logbook{
		"memory": func(t *testing.T) Logbook {
			return NewMemoryStorage()
		},
		"pebble": func(t *testing.T) Logbook {
			lb, err := NewPebbleStorage(filepath.Join(t.TempDir(), "logbook"), PebbleOptions{Logger: zaptest.NewLogger(t)})
			require.NoError(t, err)
			return lb
		},
	}
}

func TestLogbook_CRUD(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			lb := open(t)
			defer lb.Close()

			c := contactAt("K1ABC", base)
			c.FrequencyMHz = qso.Some(14.25)
			require.NoError(t, lb.Create(ctx, c))
			require.NotEmpty(t, c.ID)

			got, err := lb.Get(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, "K1ABC", got.Callsign)
			assert.Equal(t, qso.Some(14.25), got.FrequencyMHz)
			assert.True(t, got.Timestamp.OrZero().Equal(base))

			got.Notes = "worked again"
			require.NoError(t, lb.Update(ctx, &got))
			again, err := lb.Get(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, "worked again", again.Notes)

			n, err := lb.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			require.NoError(t, lb.Delete(ctx, c.ID))
			_, err = lb.Get(ctx, c.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, lb.Delete(ctx, c.ID), ErrNotFound)

			missing := qso.Contact{ID: "nope"}
			assert.ErrorIs(t, lb.Update(ctx, &missing), ErrNotFound)
		})
	}
}

func TestLogbook_ListNewestFirst(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			lb := open(t)
			defer lb.Close()

			require.NoError(t, lb.Create(ctx, contactAt("K1AAA", base)))
			require.NoError(t, lb.Create(ctx, contactAt("K1CCC", base.Add(2*time.Hour))))
			require.NoError(t, lb.Create(ctx, contactAt("K1BBB", base.Add(time.Hour))))

			list, err := lb.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, "K1CCC", list[0].Callsign)
			assert.Equal(t, "K1BBB", list[1].Callsign)
			assert.Equal(t, "K1AAA", list[2].Callsign)
		})
	}
}

func TestLogbook_FindDuplicateWindow(t *testing.T) {
	tests := []struct {
		name    string
		offset  time.Duration
		call    string
		mode    string
		matched bool
	}{
		{"same time", 0, "K1ABC", "SSB", true},
		{"119s after", 119 * time.Second, "K1ABC", "SSB", true},
		{"119s before", -119 * time.Second, "K1ABC", "SSB", true},
		{"exactly 120s after", 120 * time.Second, "K1ABC", "SSB", true},
		{"exactly 120s before", -120 * time.Second, "K1ABC", "SSB", true},
		{"121s after", 121 * time.Second, "K1ABC", "SSB", false},
		{"121s before", -121 * time.Second, "K1ABC", "SSB", false},
		{"other callsign", 0, "K1ABD", "SSB", false},
		{"other mode", 0, "K1ABC", "CW", false},
	}

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			lb := open(t)
			defer lb.Close()

			existing := contactAt("K1ABC", base)
			require.NoError(t, lb.Create(ctx, existing))

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					q := window(tt.call, base.Add(tt.offset))
					q.Mode = tt.mode
					got, ok, err := lb.FindDuplicate(ctx, q)
					require.NoError(t, err)
					assert.Equal(t, tt.matched, ok)
					if tt.matched {
						assert.Equal(t, existing.ID, got.ID)
					}
				})
			}
		})
	}
}

func TestLogbook_DuplicateIndexFollowsUpdates(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			lb := open(t)
			defer lb.Close()

			c := contactAt("K1ABC", base)
			require.NoError(t, lb.Create(ctx, c))

			c.Timestamp = qso.Some(base.Add(time.Hour))
			require.NoError(t, lb.Update(ctx, c))

			_, ok, err := lb.FindDuplicate(ctx, window("K1ABC", base))
			require.NoError(t, err)
			assert.False(t, ok, "old index entry should be gone")

			_, ok, err = lb.FindDuplicate(ctx, window("K1ABC", base.Add(time.Hour)))
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, lb.Delete(ctx, c.ID))
			_, ok, err = lb.FindDuplicate(ctx, window("K1ABC", base.Add(time.Hour)))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestLogbook_ScratchIsolation(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			lb := open(t)
			defer lb.Close()

			require.NoError(t, lb.Create(ctx, contactAt("K1AAA", base)))

			scratch, err := lb.BeginScratch(ctx)
			require.NoError(t, err)

			// Committed data is visible inside the scratch.
			_, ok, err := scratch.FindDuplicate(ctx, window("K1AAA", base))
			require.NoError(t, err)
			assert.True(t, ok)

			// Scratch writes are visible to the scratch only.
			require.NoError(t, scratch.Create(ctx, contactAt("K1BBB", base)))
			_, ok, err = scratch.FindDuplicate(ctx, window("K1BBB", base))
			require.NoError(t, err)
			assert.True(t, ok)

			_, ok, err = lb.FindDuplicate(ctx, window("K1BBB", base))
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, scratch.Discard(ctx))
			assert.ErrorIs(t, scratch.Discard(ctx), ErrScratchDone)
			assert.ErrorIs(t, scratch.Create(ctx, contactAt("K1CCC", base)), ErrScratchDone)

			n, err := lb.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestLogbook_Stations(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			lb := open(t)
			defer lb.Close()

			require.NoError(t, lb.EnsureDefaultStations(ctx))
			require.NoError(t, lb.EnsureDefaultStations(ctx))

			stations, err := lb.Stations(ctx)
			require.NoError(t, err)
			require.Len(t, stations, 3)

			def, err := DefaultStation(ctx, lb)
			require.NoError(t, err)
			assert.Equal(t, "Home", def.Name)

			club := &qso.StationProfile{Name: "Club", DefaultBand: "15m", DefaultMode: "CW", IsDefault: true}
			require.NoError(t, lb.PutStation(ctx, club))

			def, err = DefaultStation(ctx, lb)
			require.NoError(t, err)
			assert.Equal(t, "Club", def.Name)

			stations, err = lb.Stations(ctx)
			require.NoError(t, err)
			defaults := 0
			for _, s := range stations {
				if s.IsDefault {
					defaults++
				}
			}
			assert.Equal(t, 1, defaults)
		})
	}
}

func TestLogbook_Closed(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			lb := open(t)
			require.NoError(t, lb.Close())

			assert.ErrorIs(t, lb.Create(ctx, contactAt("K1ABC", base)), ErrClosed)
			_, err := lb.List(ctx)
			assert.ErrorIs(t, err, ErrClosed)
			_, err = lb.BeginScratch(ctx)
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestPebbleStorage_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "logbook")

	lb, err := NewPebbleStorage(dir, PebbleOptions{Sync: true})
	require.NoError(t, err)
	c := contactAt("K1ABC", base)
	require.NoError(t, lb.Create(ctx, c))
	require.NoError(t, lb.Close())

	lb, err = NewPebbleStorage(dir, PebbleOptions{})
	require.NoError(t, err)
	defer lb.Close()

	got, ok, err := lb.FindDuplicate(ctx, window("K1ABC", base.Add(30*time.Second)))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, c.ID, got.ID)
}

func TestAppendTimestampOrdering(t *testing.T) {
	before := appendTimestamp(nil, time.Unix(-10, 0))
	epoch := appendTimestamp(nil, time.Unix(0, 0))
	after := appendTimestamp(nil, time.Unix(10, 0))

	assert.Less(t, string(before), string(epoch))
	assert.Less(t, string(epoch), string(after))
}
