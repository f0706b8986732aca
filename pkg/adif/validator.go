package adif

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ssargent/qsolog/pkg/catalog"
)

// Accepted ranges for numeric fields. Values outside produce warnings.
const (
	minFrequencyMHz = 0.135
	maxFrequencyMHz = 250.0
	minPowerW       = 0.1
	maxPowerW       = 1500.0
)

// ValidationResult is the outcome of validating one record.
type ValidationResult struct {
	Valid    bool
	Errors   []ImportError
	Warnings []ImportWarning
}

// Validator checks a record's fields. Every rule runs; errors reject the
// record, warnings do not.
type Validator struct {
	cat *catalog.Catalog
}

// NewValidator returns a validator using cat for band and mode lookups.
func NewValidator(cat *catalog.Catalog) *Validator {
	return &Validator{cat: cat}
}

// Validate checks fields, which are keyed by upper case tag. record is the
// 1-based record number reported with each problem.
func (v *Validator) Validate(fields map[string]string, record int) ValidationResult {
	var res ValidationResult
	fail := func(msg string) {
		res.Errors = append(res.Errors, ImportError{LineNumber: record, Message: msg, Kind: ValidationError})
	}
	warn := func(msg string) {
		res.Warnings = append(res.Warnings, ImportWarning{LineNumber: record, Message: msg, Kind: ValidationWarning})
	}

	for _, tag := range RequiredFields {
		if strings.TrimSpace(fields[tag]) == "" {
			fail("Missing required field: " + tag)
		}
	}

	if call := fields[TagCall]; strings.TrimSpace(call) != "" && !catalog.IsCallsign(call) {
		fail("Invalid callsign format: " + call)
	}
	if date := fields[TagQSODate]; strings.TrimSpace(date) != "" && !isDate(date) {
		fail("Invalid date format: " + date + " (expected YYYYMMDD)")
	}
	if tm := fields[TagTimeOn]; strings.TrimSpace(tm) != "" && !isTime(tm) {
		fail("Invalid time format: " + tm + " (expected HHMM)")
	}
	if band := fields[TagBand]; strings.TrimSpace(band) != "" && !v.cat.IsBand(band) {
		warn("Unrecognized band: " + band)
	}
	if mode := fields[TagMode]; strings.TrimSpace(mode) != "" && !v.cat.IsMode(mode) {
		warn("Unrecognized mode: " + mode)
	}

	for _, tag := range []string{TagRSTSent, TagRSTRcvd} {
		if rst := fields[tag]; rst != "" && !catalog.IsStrictRST(rst) {
			warn("Invalid " + tag + " format: " + rst)
		}
	}

	if raw := fields[TagFreq]; strings.TrimSpace(raw) != "" {
		switch f, ok := parseNumber(raw); {
		case !ok:
			fail("Invalid frequency: " + raw)
		case f < minFrequencyMHz || f > maxFrequencyMHz:
			warn("Frequency out of range: " + raw + " MHz")
		}
	}
	if raw := fields[TagTxPwr]; strings.TrimSpace(raw) != "" {
		switch p, ok := parseNumber(raw); {
		case !ok:
			fail("Invalid power: " + raw)
		case p < minPowerW || p > maxPowerW:
			warn("Power out of range: " + raw + " W")
		}
	}

	if grid := fields[TagGridSquare]; grid != "" && !catalog.IsGrid(grid) {
		warn("Invalid grid square format: " + grid)
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func isDate(s string) bool {
	if len(s) != 8 || !isDigits(s) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func isTime(s string) bool {
	if len(s) != 4 || !isDigits(s) {
		return false
	}
	hour, _ := strconv.Atoi(s[:2])
	minute, _ := strconv.Atoi(s[2:])
	return hour <= 23 && minute <= 59
}

// parseNumber accepts finite decimal numbers only.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
