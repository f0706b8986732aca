package qso

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/ssargent/qsolog/pkg/catalog"
)

// Entry is a manually logged contact as submitted by the CLI or the REST API.
// Pointer fields are optional; on update a nil pointer keeps the stored value.
type Entry struct {
	Timestamp        *time.Time `json:"timestamp,omitempty"`
	Callsign         string     `json:"callsign" validate:"required,callsign"`
	Band             string     `json:"band" validate:"required,band"`
	Mode             string     `json:"mode" validate:"required,mode"`
	FrequencyMHz     *float64   `json:"frequency_mhz,omitempty" validate:"omitempty,gte=0"`
	RSTSent          string     `json:"rst_sent,omitempty" validate:"omitempty,rst"`
	RSTReceived      string     `json:"rst_received,omitempty" validate:"omitempty,rst"`
	TxPowerW         *float64   `json:"tx_power_w,omitempty" validate:"omitempty,gte=0"`
	OperatorCallsign string     `json:"operator_callsign,omitempty" validate:"omitempty,callsign"`
	Grid             string     `json:"grid,omitempty" validate:"omitempty,grid"`
	DXCC             string     `json:"dxcc,omitempty"`
	QTH              string     `json:"qth,omitempty"`
	Rig              string     `json:"rig,omitempty"`
	Antenna          string     `json:"antenna,omitempty"`
	ContestName      string     `json:"contest_name,omitempty"`
	SerialSent       *int       `json:"serial_sent,omitempty" validate:"omitempty,gte=0,lte=32767"`
	SerialReceived   *int       `json:"serial_received,omitempty" validate:"omitempty,gte=0,lte=32767"`
	DurationSec      *int       `json:"duration_sec,omitempty" validate:"omitempty,gte=0"`
	Notes            string     `json:"notes,omitempty"`
	QSLMethod        string     `json:"qsl_method,omitempty" validate:"omitempty,qslmethod"`
	StationID        string     `json:"station_id,omitempty"`
}

// EntryValidator checks Entry values against the band, mode and report tables.
type EntryValidator struct {
	validate *validator.Validate
}

// NewEntryValidator builds a validator bound to the given catalog.
func NewEntryValidator(cat *catalog.Catalog) *EntryValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	register := func(tag string, fn func(string) bool) {
		// RegisterValidation only fails on an empty tag or nil func.
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		})
	}
	register("callsign", catalog.IsCallsign)
	register("band", cat.IsBand)
	register("mode", cat.IsMode)
	register("rst", catalog.IsValidRST)
	register("grid", catalog.IsGrid)
	register("qslmethod", func(s string) bool {
		_, ok := cat.QSLMethodDescription(s)
		return ok
	})
	return &EntryValidator{validate: v}
}

// Validate returns nil or an error naming every failing field.
func (v *EntryValidator) Validate(e Entry) error {
	err := v.validate.Struct(e)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate entry")
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.Newf("invalid contact: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte", "lte":
		return fe.Field() + " is out of range"
	}
	return fe.Field() + " is not a valid " + fe.Tag() + ": " + toString(fe.Value())
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Contact converts the entry into a new contact. The callsign is uppercased,
// a missing timestamp becomes now, and station supplies the operator, rig and
// antenna when the entry leaves them blank.
func (e Entry) Contact(station *StationProfile, now time.Time) Contact {
	c := Contact{}
	e.apply(&c)
	if !c.Timestamp.IsSet() {
		c.Timestamp = Some(now.UTC().Truncate(time.Minute))
	}
	if station != nil {
		if c.StationID == "" {
			c.StationID = station.ID
		}
		if c.OperatorCallsign == "" {
			c.OperatorCallsign = station.OperatorCallsign
		}
		if c.Rig == "" {
			c.Rig = station.Rig
		}
		if c.Antenna == "" {
			c.Antenna = station.Antenna
		}
	}
	return c
}

// ApplyTo overwrites existing with the entry. Text fields are replaced,
// nil optional fields keep their stored values.
func (e Entry) ApplyTo(existing Contact) Contact {
	e.apply(&existing)
	return existing
}

func (e Entry) apply(c *Contact) {
	if e.Timestamp != nil {
		c.Timestamp = Some(e.Timestamp.UTC())
	}
	c.Callsign = strings.ToUpper(strings.TrimSpace(e.Callsign))
	c.Band = e.Band
	c.Mode = e.Mode
	c.RSTSent = e.RSTSent
	c.RSTReceived = e.RSTReceived
	c.OperatorCallsign = strings.ToUpper(e.OperatorCallsign)
	c.Grid = e.Grid
	c.DXCC = e.DXCC
	c.QTH = e.QTH
	c.Rig = e.Rig
	c.Antenna = e.Antenna
	c.ContestName = e.ContestName
	c.Notes = e.Notes
	c.QSLMethod = e.QSLMethod
	if e.StationID != "" {
		c.StationID = e.StationID
	}
	if e.FrequencyMHz != nil {
		c.FrequencyMHz = Some(*e.FrequencyMHz)
	}
	if e.TxPowerW != nil {
		c.TxPowerW = Some(*e.TxPowerW)
	}
	if e.SerialSent != nil {
		c.SerialSent = Some(*e.SerialSent)
	}
	if e.SerialReceived != nil {
		c.SerialReceived = Some(*e.SerialReceived)
	}
	if e.DurationSec != nil {
		c.DurationSec = Some(*e.DurationSec)
	}
}
