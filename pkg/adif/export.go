package adif

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/qsolog/pkg/qso"
)

// Export renders contacts as an ADIF document. It never fails; an empty
// slice yields just the header.
func (c *Codec) Export(contacts []qso.Contact) string {
	var sb strings.Builder
	c.writeHeader(&sb)
	for i := range contacts {
		writeRecord(&sb, &contacts[i])
	}
	return sb.String()
}

// ExportTo streams the same document Export returns to w.
func (c *Codec) ExportTo(w io.Writer, contacts []qso.Contact) error {
	bw := bufio.NewWriter(w)
	var sb strings.Builder
	c.writeHeader(&sb)
	for i := range contacts {
		writeRecord(&sb, &contacts[i])
		if _, err := bw.WriteString(sb.String()); err != nil {
			return errors.Wrap(err, "write adif record")
		}
		sb.Reset()
	}
	if _, err := bw.WriteString(sb.String()); err != nil {
		return errors.Wrap(err, "write adif header")
	}
	return errors.Wrap(bw.Flush(), "flush adif")
}

func (c *Codec) writeHeader(sb *strings.Builder) {
	sb.WriteString("Generated-By: " + c.programID + crlf)
	sb.WriteString("ADIF_VER: " + Version + crlf)
	sb.WriteString("PROGRAMID: " + c.programID + crlf)
	sb.WriteString("PROGRAMVERSION: " + c.programVersion + crlf)
	sb.WriteString(eoh + crlf)
}

func writeRecord(sb *strings.Builder, q *qso.Contact) {
	writeText(sb, TagCall, q.Callsign)
	if ts, ok := q.Timestamp.Get(); ok {
		ts = ts.UTC()
		writeField(sb, TagQSODate, ts.Format(dateLayout))
		writeField(sb, TagTimeOn, ts.Format(timeLayout))
	}
	writeText(sb, TagBand, q.Band)
	writeText(sb, TagMode, q.Mode)
	if f := q.FrequencyMHz.OrZero(); f > 0 {
		writeField(sb, TagFreq, strconv.FormatFloat(f, 'f', 6, 64))
	}
	writeText(sb, TagRSTSent, q.RSTSent)
	writeText(sb, TagRSTRcvd, q.RSTReceived)
	if p := q.TxPowerW.OrZero(); p > 0 {
		writeField(sb, TagTxPwr, strconv.FormatFloat(p, 'f', 1, 64))
	}
	writeText(sb, TagGridSquare, q.Grid)
	writeText(sb, TagQTH, q.QTH)
	writeText(sb, TagDXCC, q.DXCC)
	writeText(sb, TagOperator, q.OperatorCallsign)
	writeText(sb, TagNotes, q.Notes)
	writeText(sb, TagRig, q.Rig)
	writeText(sb, TagAntenna, q.Antenna)
	writeText(sb, TagContestID, q.ContestName)
	writePositive(sb, TagSTX, q.SerialSent)
	writePositive(sb, TagSRX, q.SerialReceived)
	writePositive(sb, TagDuration, q.DurationSec)
	if q.QSLSent {
		writeField(sb, TagQSLSent, "Y")
		if d, ok := q.QSLSentDate.Get(); ok {
			writeField(sb, TagQSLSentDate, d.UTC().Format(dateLayout))
		}
	}
	if q.QSLReceived {
		writeField(sb, TagQSLRcvd, "Y")
		if d, ok := q.QSLReceivedDate.Get(); ok {
			writeField(sb, TagQSLRcvdDate, d.UTC().Format(dateLayout))
		}
	}
	writeText(sb, TagQSLMethod, q.QSLMethod)
	sb.WriteString(eor + crlf)
}

func writeText(sb *strings.Builder, tag, value string) {
	if value != "" {
		writeField(sb, tag, value)
	}
}

func writePositive(sb *strings.Builder, tag string, v qso.Optional[int]) {
	if n := v.OrZero(); n > 0 {
		writeField(sb, tag, strconv.Itoa(n))
	}
}

func writeField(sb *strings.Builder, tag, value string) {
	sb.WriteByte('<')
	sb.WriteString(tag)
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(utf8.RuneCountInString(value)))
	sb.WriteByte('>')
	sb.WriteString(value)
}
