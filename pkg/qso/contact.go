// Package qso holds the logbook domain model: contacts, station profiles and
// the manual entry form used by the CLI and the REST API.
package qso

import "time"

// Contact is a single logged two-way radio contact.
//
// Text attributes use the empty string for "not recorded". Numeric and date
// attributes are Optional so that absence is explicit in memory, although the
// ADIF exporter still treats a stored zero as absent.
type Contact struct {
	ID        string              `json:"id"`
	Timestamp Optional[time.Time] `json:"timestamp"`
	Callsign  string              `json:"callsign"`
	Band      string              `json:"band"`
	Mode      string              `json:"mode"`

	FrequencyMHz Optional[float64] `json:"frequency_mhz"`
	RSTSent      string            `json:"rst_sent,omitempty"`
	RSTReceived  string            `json:"rst_received,omitempty"`
	TxPowerW     Optional[float64] `json:"tx_power_w"`

	OperatorCallsign string `json:"operator_callsign,omitempty"`
	Grid             string `json:"grid,omitempty"`
	DXCC             string `json:"dxcc,omitempty"`
	QTH              string `json:"qth,omitempty"`
	Rig              string `json:"rig,omitempty"`
	Antenna          string `json:"antenna,omitempty"`
	ContestName      string `json:"contest_name,omitempty"`

	SerialSent     Optional[int] `json:"serial_sent"`
	SerialReceived Optional[int] `json:"serial_received"`
	DurationSec    Optional[int] `json:"duration_sec"`
	Notes          string        `json:"notes,omitempty"`

	QSLSent         bool                `json:"qsl_sent"`
	QSLSentDate     Optional[time.Time] `json:"qsl_sent_date"`
	QSLReceived     bool                `json:"qsl_received"`
	QSLReceivedDate Optional[time.Time] `json:"qsl_received_date"`
	QSLMethod       string              `json:"qsl_method,omitempty"`

	StationID string `json:"station_id,omitempty"`
}

// HasDuplicateKey reports whether the contact carries every attribute the
// duplicate check keys on: callsign, timestamp, band and mode.
func (c Contact) HasDuplicateKey() bool {
	return c.Callsign != "" && c.Timestamp.IsSet() && c.Band != "" && c.Mode != ""
}

// ByTimestampDesc orders contacts newest first. Contacts without a timestamp
// sort last.
func ByTimestampDesc(a, b Contact) int {
	at, aok := a.Timestamp.Get()
	bt, bok := b.Timestamp.Get()
	switch {
	case aok && bok:
		return bt.Compare(at)
	case aok:
		return -1
	case bok:
		return 1
	}
	return 0
}
