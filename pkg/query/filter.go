// Package query filters and summarises contacts in memory. Filters mirror the
// browse screen of the logbook: free text search, band, mode, station, a date
// range relative to now, and QSL state.
package query

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/qsolog/pkg/qso"
)

// DateRange selects contacts by how long ago they happened.
type DateRange string

const (
	AllTime   DateRange = "all"
	Today     DateRange = "today"
	Yesterday DateRange = "yesterday"
	LastWeek  DateRange = "week"
	LastMonth DateRange = "month"
	LastYear  DateRange = "year"
)

// DateRanges lists every range in display order.
var DateRanges = []DateRange{AllTime, Today, Yesterday, LastWeek, LastMonth, LastYear}

// ParseDateRange accepts a range name. The empty string selects AllTime.
func ParseDateRange(s string) (DateRange, error) {
	if s == "" {
		return AllTime, nil
	}
	r := DateRange(strings.ToLower(s))
	for _, known := range DateRanges {
		if r == known {
			return r, nil
		}
	}
	return "", errors.Newf("unknown date range %q", s)
}

// Contains reports whether t falls in the range relative to now. Day
// boundaries are taken in now's location.
func (r DateRange) Contains(t, now time.Time) bool {
	switch r {
	case AllTime, "":
		return true
	case Today:
		return sameDay(t, now)
	case Yesterday:
		return sameDay(t, now.AddDate(0, 0, -1))
	case LastWeek:
		return !t.Before(now.AddDate(0, 0, -7))
	case LastMonth:
		return !t.Before(now.AddDate(0, -1, 0))
	case LastYear:
		return !t.Before(now.AddDate(-1, 0, 0))
	}
	return false
}

func sameDay(t, day time.Time) bool {
	t = t.In(day.Location())
	ty, tm, td := t.Date()
	dy, dm, dd := day.Date()
	return ty == dy && tm == dm && td == dd
}

// QSLFilter selects contacts by confirmation state.
type QSLFilter string

const (
	QSLAll      QSLFilter = "all"
	QSLSent     QSLFilter = "sent"
	QSLReceived QSLFilter = "received"
	// QSLPending matches contacts not yet both sent and received.
	QSLPending QSLFilter = "pending"
)

// ParseQSLFilter accepts a filter name. The empty string selects QSLAll.
func ParseQSLFilter(s string) (QSLFilter, error) {
	switch f := QSLFilter(strings.ToLower(s)); f {
	case "":
		return QSLAll, nil
	case QSLAll, QSLSent, QSLReceived, QSLPending:
		return f, nil
	}
	return "", errors.Newf("unknown QSL filter %q", s)
}

func (f QSLFilter) matches(c qso.Contact) bool {
	switch f {
	case QSLSent:
		return c.QSLSent
	case QSLReceived:
		return c.QSLReceived
	case QSLPending:
		return !c.QSLSent || !c.QSLReceived
	}
	return true
}

// Filter is a set of conditions that must all hold. Zero fields match
// everything, except that contacts without a timestamp never match.
type Filter struct {
	// Search is matched case-insensitively against callsign, grid, DXCC
	// and QTH.
	Search    string
	Band      string
	Mode      string
	StationID string
	DateRange DateRange
	QSL       QSLFilter
}

// Matches reports whether c satisfies every condition of f.
func (f Filter) Matches(c qso.Contact, now time.Time) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		found := false
		for _, hay := range []string{c.Callsign, c.Grid, c.DXCC, c.QTH} {
			if strings.Contains(strings.ToLower(hay), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Band != "" && c.Band != f.Band {
		return false
	}
	if f.Mode != "" && c.Mode != f.Mode {
		return false
	}
	if f.StationID != "" && c.StationID != f.StationID {
		return false
	}
	ts, ok := c.Timestamp.Get()
	if !ok || !f.DateRange.Contains(ts, now) {
		return false
	}
	return f.QSL.matches(c)
}

// Apply returns the contacts matching f, preserving their order.
func (f Filter) Apply(contacts []qso.Contact, now time.Time) []qso.Contact {
	out := make([]qso.Contact, 0, len(contacts))
	for _, c := range contacts {
		if f.Matches(c, now) {
			out = append(out, c)
		}
	}
	return out
}

// IsZero reports whether f has no conditions.
func (f Filter) IsZero() bool {
	return f == Filter{} || f == Filter{DateRange: AllTime, QSL: QSLAll}
}

// ExportSet returns the contacts an export should cover: the filtered set, or
// every contact when the filter matches nothing.
func (f Filter) ExportSet(contacts []qso.Contact, now time.Time) []qso.Contact {
	filtered := f.Apply(contacts, now)
	if len(filtered) == 0 {
		return contacts
	}
	return filtered
}
