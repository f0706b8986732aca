package adif

import (
	"context"
	"strings"
	"time"

	"github.com/ssargent/qsolog/pkg/qso"
	"github.com/ssargent/qsolog/pkg/storage"
)

const testHeader = "Generated-By: QSO Log\r\nADIF_VER: 3.1.4\r\nPROGRAMID: QSO Log\r\nPROGRAMVERSION: 1.0\r\n<EOH>\r\n"

const k1abcRecord = "<CALL:5>K1ABC<QSO_DATE:8>20240115<TIME_ON:4>1430<BAND:3>20m<MODE:3>SSB<eor>"

// adifDoc builds a document from the standard header and the given lines.
func adifDoc(lines ...string) string {
	return testHeader + strings.Join(lines, "\r\n") + "\r\n"
}

func newTestCodec() *Codec {
	return NewCodec(Options{})
}

func utc(year int, month time.Month, day, hour, minute, sec int) time.Time {
	return time.Date(year, month, day, hour, minute, sec, 0, time.UTC)
}

func k1abcAt(ts time.Time) qso.Contact {
	return qso.Contact{
		Callsign:  "K1ABC",
		Timestamp: qso.Some(ts),
		Band:      "20m",
		Mode:      "SSB",
	}
}

// failingStore rejects every write and optionally every lookup.
type failingStore struct {
	createErr error
	findErr   error
	creates   int
}

func (f *failingStore) FindDuplicate(context.Context, storage.DuplicateQuery) (qso.Contact, bool, error) {
	return qso.Contact{}, false, f.findErr
}

func (f *failingStore) Create(_ context.Context, c *qso.Contact) error {
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	c.ID = "created"
	return nil
}

func fixedZone(hours int) *time.Location {
	return time.FixedZone("test", hours*3600)
}
