package query

import (
	"time"

	"github.com/ssargent/qsolog/pkg/qso"
)

// RecentDays is the window covered by Analytics.ByDay.
const RecentDays = 30

// UnknownKey groups contacts that have no band or mode.
const UnknownKey = "Unknown"

// Analytics is a summary of a logbook.
type Analytics struct {
	Total  int            `json:"total"`
	ByBand map[string]int `json:"by_band"`
	ByMode map[string]int `json:"by_mode"`

	// ByDay counts contacts per calendar day, keyed YYYY-MM-DD, over the last
	// RecentDays days.
	ByDay           map[string]int `json:"by_day"`
	QSLSent         int            `json:"qsl_sent"`
	QSLReceived     int            `json:"qsl_received"`
	UniqueCallsigns int            `json:"unique_callsigns"`
	DXCCEntities    int            `json:"dxcc_entities"`
}

// Summarize computes analytics over contacts. Days are taken in now's
// location.
func Summarize(contacts []qso.Contact, now time.Time) Analytics {
	a := Analytics{
		Total:  len(contacts),
		ByBand: make(map[string]int),
		ByMode: make(map[string]int),
		ByDay:  make(map[string]int),
	}
	since := now.AddDate(0, 0, -RecentDays)
	calls := make(map[string]struct{})
	entities := make(map[string]struct{})

	for _, c := range contacts {
		a.ByBand[orUnknown(c.Band)]++
		a.ByMode[orUnknown(c.Mode)]++
		if ts, ok := c.Timestamp.Get(); ok && !ts.Before(since) {
			a.ByDay[ts.In(now.Location()).Format(time.DateOnly)]++
		}
		if c.QSLSent {
			a.QSLSent++
		}
		if c.QSLReceived {
			a.QSLReceived++
		}
		if c.Callsign != "" {
			calls[c.Callsign] = struct{}{}
		}
		if c.DXCC != "" {
			entities[c.DXCC] = struct{}{}
		}
	}
	a.UniqueCallsigns = len(calls)
	a.DXCCEntities = len(entities)
	return a
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownKey
	}
	return s
}
