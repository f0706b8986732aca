package adif

import (
	"fmt"
	"strings"

	"github.com/ssargent/qsolog/pkg/qso"
)

// ErrorKind classifies an ImportError.
type ErrorKind string

const (
	// FormatError means the text is not ADIF. Nothing was imported.
	FormatError ErrorKind = "format"
	// ValidationError means a required field was missing or unparseable.
	ValidationError ErrorKind = "validation"
	// PersistenceError means the store rejected a write.
	PersistenceError ErrorKind = "persistence"
)

// WarningKind classifies an ImportWarning.
type WarningKind string

const (
	// FieldParseWarning means a line did not match the field grammar.
	FieldParseWarning WarningKind = "field_parse"
	// ValidationWarning means a value was present but unusual.
	ValidationWarning WarningKind = "validation"
	// DuplicateFound means a record matched an existing contact and was skipped.
	DuplicateFound WarningKind = "duplicate"
)

// ImportError is a problem that kept a record, or the whole import, from
// being imported.
type ImportError struct {
	LineNumber int       `json:"line_number"`
	Message    string    `json:"message"`
	Kind       ErrorKind `json:"kind"`
}

func (e ImportError) String() string {
	return fmt.Sprintf("Line %d: %s", e.LineNumber, e.Message)
}

// ImportWarning is a problem that did not block a record.
type ImportWarning struct {
	LineNumber int         `json:"line_number"`
	Message    string      `json:"message"`
	Kind       WarningKind `json:"kind"`
}

func (w ImportWarning) String() string {
	return fmt.Sprintf("Line %d: %s", w.LineNumber, w.Message)
}

// ImportResult summarises one import call.
//
// ErrorCount is the number of records that failed: rejected by validation
// or refused by the store. A format failure counts as one.
type ImportResult struct {
	ImportedCount  int             `json:"imported_count"`
	DuplicateCount int             `json:"duplicate_count"`
	ErrorCount     int             `json:"error_count"`
	Errors         []ImportError   `json:"errors"`
	Warnings       []ImportWarning `json:"warnings"`
	// Duplicates are the existing contacts that caused records to be skipped.
	Duplicates []qso.Contact `json:"duplicates"`
	// Imported are the contacts created, with IDs assigned by the store.
	// A preview leaves ID empty here, and on any duplicate that matched a
	// contact created earlier in the same preview.
	Imported []qso.Contact `json:"imported"`
	Preview  bool          `json:"preview"`
}

// FormatFailed reports whether the text was rejected before any record was
// read.
func (r ImportResult) FormatFailed() bool {
	return len(r.Errors) == 1 && r.Errors[0].Kind == FormatError
}

const (
	summaryErrorLimit   = 5
	summaryWarningLimit = 3
)

// Summary renders the result for people: counts, then the first five
// errors, or the first three warnings when there were no errors.
func (r ImportResult) Summary() string {
	var lines []string
	if r.ImportedCount > 0 {
		verb := "Successfully imported"
		if r.Preview {
			verb = "Would import"
		}
		lines = append(lines, fmt.Sprintf("%s %d QSO(s)", verb, r.ImportedCount))
	}
	if r.DuplicateCount > 0 {
		lines = append(lines, fmt.Sprintf("Found %d duplicate QSO(s) - skipped", r.DuplicateCount))
	}
	if r.ErrorCount > 0 {
		lines = append(lines, fmt.Sprintf("%d QSO(s) failed to import due to errors", r.ErrorCount))
	}
	if len(r.Warnings) > 0 {
		lines = append(lines, fmt.Sprintf("%d warning(s) during import", len(r.Warnings)))
	}
	if len(lines) == 0 {
		lines = append(lines, "No QSOs imported")
	}

	summary := strings.Join(lines, "\n")
	switch {
	case r.ErrorCount > 0 && len(r.Errors) > 0:
		details := make([]string, 0, summaryErrorLimit)
		for _, e := range r.Errors[:min(summaryErrorLimit, len(r.Errors))] {
			details = append(details, e.String())
		}
		summary += "\n\nFirst few errors:\n" + strings.Join(details, "\n")
	case len(r.Warnings) > 0:
		details := make([]string, 0, summaryWarningLimit)
		for _, w := range r.Warnings[:min(summaryWarningLimit, len(r.Warnings))] {
			details = append(details, w.String())
		}
		summary += "\n\nFirst few warnings:\n" + strings.Join(details, "\n")
	}
	return summary
}
