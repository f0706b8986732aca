// Package csvexport writes contacts as a spreadsheet friendly CSV file with a
// fixed 25 column layout. Timestamps are written in UTC.
package csvexport

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/qsolog/pkg/qso"
)

// Header is the first row of every export.
var Header = []string{
	"Date", "Time", "Callsign", "Band", "Mode", "Frequency", "RST Sent", "RST Received",
	"TX Power", "Operator", "Grid", "DXCC", "QTH", "Rig", "Antenna", "Contest",
	"Serial Sent", "Serial Received", "Duration", "Notes",
	"QSL Sent", "QSL Received", "QSL Sent Date", "QSL Received Date", "QSL Method",
}

const (
	dateLayout = time.DateOnly
	timeLayout = "15:04"
)

// Write writes the header and one row per contact to w.
func Write(w io.Writer, contacts []qso.Contact) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for i := range contacts {
		if err := cw.Write(Row(&contacts[i])); err != nil {
			return errors.Wrapf(err, "write csv row %d", i+1)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// Export returns the CSV document as a string.
func Export(contacts []qso.Contact) string {
	var buf bytes.Buffer
	// A bytes.Buffer never fails to write.
	_ = Write(&buf, contacts)
	return buf.String()
}

// Row renders one contact in Header order. Zero or absent numbers are empty.
func Row(c *qso.Contact) []string {
	var date, clock string
	if ts, ok := c.Timestamp.Get(); ok {
		ts = ts.UTC()
		date, clock = ts.Format(dateLayout), ts.Format(timeLayout)
	}
	return []string{
		date,
		clock,
		c.Callsign,
		c.Band,
		c.Mode,
		positiveFloat(c.FrequencyMHz, 6),
		c.RSTSent,
		c.RSTReceived,
		positiveFloat(c.TxPowerW, 1),
		c.OperatorCallsign,
		c.Grid,
		c.DXCC,
		c.QTH,
		c.Rig,
		c.Antenna,
		c.ContestName,
		positiveInt(c.SerialSent),
		positiveInt(c.SerialReceived),
		positiveInt(c.DurationSec),
		c.Notes,
		flag(c.QSLSent),
		flag(c.QSLReceived),
		optionalDate(c.QSLSentDate),
		optionalDate(c.QSLReceivedDate),
		c.QSLMethod,
	}
}

func positiveFloat(v qso.Optional[float64], prec int) string {
	if f := v.OrZero(); f > 0 {
		return strconv.FormatFloat(f, 'f', prec, 64)
	}
	return ""
}

func positiveInt(v qso.Optional[int]) string {
	if n := v.OrZero(); n > 0 {
		return strconv.Itoa(n)
	}
	return ""
}

func optionalDate(v qso.Optional[time.Time]) string {
	if d, ok := v.Get(); ok {
		return d.UTC().Format(dateLayout)
	}
	return ""
}

func flag(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
