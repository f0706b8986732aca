package adif

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/qsolog/pkg/qso"
	"go.uber.org/zap"
)

// ErrInvalidFormat is returned by Parse when the text does not look like
// ADIF: it lacks an <EOH> header terminator, an <eor> record terminator or
// any angle-bracketed token.
var ErrInvalidFormat = errors.New("invalid ADIF format: expected <EOH> header terminator and <eor> record markers")

// Candidate is a record that passed validation and is ready to commit.
type Candidate struct {
	// Record is the 1-based record number.
	Record int
	// Line is the physical line holding the record's <eor>.
	Line    int
	Contact qso.Contact
}

// Batch is the output of Parse: the records ready to commit plus every
// problem found while scanning and validating.
type Batch struct {
	Candidates []Candidate
	Errors     []ImportError
	Warnings   []ImportWarning
	// Records is the number of records terminated by <eor>.
	Records int
	// Rejected is the number of records that failed validation.
	Rejected int

	// errMarks[i] and warnMarks[i] hold len(Candidates) at the time
	// Errors[i] and Warnings[i] were recorded, so Commit can merge its own
	// diagnostics back in scan order.
	errMarks  []int
	warnMarks []int
}

func (b *Batch) addError(e ImportError) {
	b.Errors = append(b.Errors, e)
	b.errMarks = append(b.errMarks, len(b.Candidates))
}

func (b *Batch) addWarning(w ImportWarning) {
	b.Warnings = append(b.Warnings, w)
	b.warnMarks = append(b.warnMarks, len(b.Candidates))
}

// Parse scans ADIF text into a Batch without touching storage.
//
// Lines end at \r\n, \r or \n and are numbered from 1. Blank lines and the
// header lines written by Export are skipped. Each remaining line is read as
// a run of tokens: a field <TAG:LEN>VALUE, a record terminator <eor>, or a
// header terminator <EOH>, which discards any fields collected so far. A
// field value is exactly LEN characters and may continue across line
// breaks. Anything else produces a FieldParseWarning and the rest of the
// line is ignored. Fields left over after the last <eor> are dropped with a
// warning.
func (c *Codec) Parse(text string) (Batch, error) {
	if !looksLikeADIF(text) {
		return Batch{}, ErrInvalidFormat
	}

	var (
		b      Batch
		fields = make(map[string]string)
		// Free text before the first <EOH> is a header preamble, not a
		// malformed field.
		inHeader = true
	)

	lines := splitLines(text)
	sc := scanner{text: text}
	for i := 0; i < len(lines); i++ {
		content := text[lines[i].start:lines[i].end]
		line := strings.TrimSpace(content)
		if line == "" {
			continue
		}
		sc.pos, sc.end = lines[i].start, lines[i].end
		if isHeaderLine(line) {
			// Export's header lines are skipped unless tokens follow the
			// header text on the same line.
			k := strings.IndexByte(content, '<')
			if k < 0 || !hasControlToken(content) {
				continue
			}
			sc.pos += k
		}

		for {
			tok, problem := sc.next()
			if problem != "" {
				if !inHeader {
					b.addWarning(ImportWarning{
						LineNumber: i + 1,
						Message:    problem,
						Kind:       FieldParseWarning,
					})
				}
				break
			}
			if tok.kind == tokenEnd {
				break
			}
			switch tok.kind {
			case tokenEOH:
				inHeader = false
				clear(fields)
			case tokenEOR:
				b.Records++
				c.finishRecord(&b, fields, b.Records, i+1)
				clear(fields)
			case tokenField:
				fields[tok.tag] = tok.value
				if sc.pos > sc.end {
					i = sc.follow(lines, i)
				}
			}
		}
	}

	if len(fields) > 0 {
		b.addWarning(ImportWarning{
			LineNumber: len(lines),
			Message:    fmt.Sprintf("Incomplete record at end of file: %d field(s) without <eor>", len(fields)),
			Kind:       FieldParseWarning,
		})
	}
	return b, nil
}

func (c *Codec) finishRecord(b *Batch, fields map[string]string, record, line int) {
	vr := c.validator.Validate(fields, record)
	if !vr.Valid {
		for _, e := range vr.Errors {
			b.addError(e)
		}
		for _, w := range vr.Warnings {
			b.addWarning(w)
		}
		b.Rejected++
		c.log.Debug("record rejected", zap.Int("record", record), zap.Int("errors", len(vr.Errors)))
		return
	}
	for _, w := range vr.Warnings {
		b.addWarning(w)
	}
	contact, notes := contactFromFields(fields)
	for _, msg := range notes {
		b.addWarning(ImportWarning{LineNumber: record, Message: msg, Kind: ValidationWarning})
	}
	b.Candidates = append(b.Candidates, Candidate{Record: record, Line: line, Contact: contact})
}

func looksLikeADIF(text string) bool {
	return strings.Contains(text, eoh) &&
		strings.Contains(text, eor) &&
		strings.Contains(text, "<") &&
		strings.Contains(text, ">")
}

func isHeaderLine(line string) bool {
	for _, p := range headerPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func hasControlToken(line string) bool {
	return strings.Contains(line, eor) || strings.Contains(line, eoh)
}

// contactFromFields maps validated fields onto a contact. Optional numeric
// fields that do not parse are left unset and reported in notes.
func contactFromFields(fields map[string]string) (qso.Contact, []string) {
	var notes []string
	c := qso.Contact{
		Callsign:         strings.ToUpper(fields[TagCall]),
		Band:             fields[TagBand],
		Mode:             fields[TagMode],
		RSTSent:          fields[TagRSTSent],
		RSTReceived:      fields[TagRSTRcvd],
		OperatorCallsign: fields[TagOperator],
		Grid:             fields[TagGridSquare],
		QTH:              fields[TagQTH],
		DXCC:             fields[TagDXCC],
		Notes:            fields[TagNotes],
		Rig:              fields[TagRig],
		Antenna:          fields[TagAntenna],
		ContestName:      fields[TagContestID],
		QSLMethod:        fields[TagQSLMethod],
		QSLSent:          fields[TagQSLSent] == "Y",
		QSLReceived:      fields[TagQSLRcvd] == "Y",
	}
	if country, ok := fields[TagCountry]; ok {
		c.DXCC = country
	}

	if ts, err := time.ParseInLocation(dateTimeLayout, fields[TagQSODate]+fields[TagTimeOn], time.UTC); err == nil {
		c.Timestamp = qso.Some(ts)
	}
	if f, ok := parseNumber(fields[TagFreq]); ok {
		c.FrequencyMHz = qso.Some(f)
	}
	if p, ok := parseNumber(fields[TagTxPwr]); ok {
		c.TxPowerW = qso.Some(p)
	}

	ints := []struct {
		tag  string
		bits int
		dst  *qso.Optional[int]
	}{
		{TagSTX, 16, &c.SerialSent},
		{TagSRX, 16, &c.SerialReceived},
		{TagDuration, 32, &c.DurationSec},
	}
	for _, f := range ints {
		raw, ok := fields[f.tag]
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, f.bits)
		if err != nil {
			notes = append(notes, "Ignoring invalid "+f.tag+": "+raw)
			continue
		}
		*f.dst = qso.Some(int(n))
	}

	dates := []struct {
		tag string
		dst *qso.Optional[time.Time]
	}{
		{TagQSLSentDate, &c.QSLSentDate},
		{TagQSLRcvdDate, &c.QSLReceivedDate},
	}
	for _, f := range dates {
		raw, ok := fields[f.tag]
		if !ok || raw == "" {
			continue
		}
		d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			notes = append(notes, "Ignoring invalid "+f.tag+": "+raw)
			continue
		}
		*f.dst = qso.Some(d)
	}
	return c, notes
}
