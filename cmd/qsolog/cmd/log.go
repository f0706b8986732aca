/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/ssargent/qsolog/pkg/catalog"
	"github.com/ssargent/qsolog/pkg/qso"
	"github.com/ssargent/qsolog/pkg/storage"
)

// timeLayouts are accepted by --time, tried in order.
var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"}

// logCmd represents the log command
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log a contact by hand",
	Long: `Log a single contact. The callsign is uppercased, the time defaults to
now (UTC), and the operator, rig and antenna default to the chosen station
profile, or the default profile when --station is not given.

Band and mode default to the station profile's defaults when omitted.

Examples:
  qsolog log --call K1ABC --band 20m --mode SSB --rst-sent 59 --rst-rcvd 57
  qsolog log --call W1AW --band 40m --mode CW --freq 7.030 --time "2024-01-15 14:30"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := entryFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		c, err := logContact(cmd.Context(), rt.logbook, qso.NewEntryValidator(catalog.Default()), e, time.Now())
		if err != nil {
			return err
		}
		printLogged(cmd.OutOrStdout(), c)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logbookCommand(logCmd))
	f := logCmd.Flags()
	f.String("call", "", "Callsign of the station worked (required)")
	f.String("band", "", "Band, e.g. 20m")
	f.String("mode", "", "Mode, e.g. SSB")
	f.String("time", "", "UTC time of the contact (RFC 3339 or \"YYYY-MM-DD HH:MM\"; default now)")
	f.Float64("freq", 0, "Frequency in MHz")
	f.String("rst-sent", "", "Signal report sent")
	f.String("rst-rcvd", "", "Signal report received")
	f.Float64("power", 0, "Transmit power in watts")
	f.String("operator", "", "Operator callsign")
	f.String("grid", "", "Maidenhead grid square of the station worked")
	f.String("dxcc", "", "DXCC entity")
	f.String("qth", "", "Location of the station worked")
	f.String("contest", "", "Contest name")
	f.Int("stx", 0, "Serial number sent")
	f.Int("srx", 0, "Serial number received")
	f.String("qsl-method", "", "QSL method, e.g. LoTW")
	f.String("notes", "", "Free-form notes")
	f.String("station", "", "Station profile ID (default: the default profile)")
	_ = logCmd.MarkFlagRequired("call")
}

// entryFromFlags builds an entry from the log command's flags. Numeric flags
// are set only when given.
func entryFromFlags(f *pflag.FlagSet) (qso.Entry, error) {
	str := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	e := qso.Entry{
		Callsign:         str("call"),
		Band:             str("band"),
		Mode:             str("mode"),
		RSTSent:          str("rst-sent"),
		RSTReceived:      str("rst-rcvd"),
		OperatorCallsign: str("operator"),
		Grid:             str("grid"),
		DXCC:             str("dxcc"),
		QTH:              str("qth"),
		ContestName:      str("contest"),
		QSLMethod:        str("qsl-method"),
		Notes:            str("notes"),
		StationID:        str("station"),
	}

	if v := str("time"); v != "" {
		ts, err := parseTime(v)
		if err != nil {
			return qso.Entry{}, err
		}
		e.Timestamp = &ts
	}
	if f.Changed("freq") {
		v, _ := f.GetFloat64("freq")
		e.FrequencyMHz = &v
	}
	if f.Changed("power") {
		v, _ := f.GetFloat64("power")
		e.TxPowerW = &v
	}
	if f.Changed("stx") {
		v, _ := f.GetInt("stx")
		e.SerialSent = &v
	}
	if f.Changed("srx") {
		v, _ := f.GetInt("srx")
		e.SerialReceived = &v
	}
	return e, nil
}

func parseTime(v string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, errors.Newf("invalid time %q (want RFC 3339 or YYYY-MM-DD HH:MM)", v)
}

// logContact validates e and saves it. Band, mode and power fall back to the
// station profile's defaults.
func logContact(ctx context.Context, lb storage.Logbook, v *qso.EntryValidator, e qso.Entry, now time.Time) (qso.Contact, error) {
	station, err := resolveStation(ctx, lb, e.StationID)
	if err != nil {
		return qso.Contact{}, err
	}
	if station != nil {
		if e.Band == "" {
			e.Band = station.DefaultBand
		}
		if e.Mode == "" {
			e.Mode = station.DefaultMode
		}
		if e.TxPowerW == nil && station.DefaultPowerW > 0 {
			p := station.DefaultPowerW
			e.TxPowerW = &p
		}
	}
	if err := v.Validate(e); err != nil {
		return qso.Contact{}, err
	}

	c := e.Contact(station, now)
	if err := lb.Create(ctx, &c); err != nil {
		return qso.Contact{}, errors.Wrap(err, "save contact")
	}
	return c, nil
}

func resolveStation(ctx context.Context, lb storage.Logbook, id string) (*qso.StationProfile, error) {
	if id == "" {
		st, err := storage.DefaultStation(ctx, lb)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return st, err
	}
	st, err := findStation(ctx, lb, id)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func printLogged(out io.Writer, c qso.Contact) {
	ts, _ := c.Timestamp.Get()
	fmt.Fprintf(out, "Logged %s on %s %s at %s UTC (id %s)\n",
		c.Callsign, c.Band, c.Mode, ts.UTC().Format("2006-01-02 15:04"), c.ID)
}
