/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/qsolog/pkg/catalog"
	"github.com/ssargent/qsolog/pkg/qso"
	"github.com/ssargent/qsolog/pkg/storage"
)

// stationCmd represents the station command
var stationCmd = &cobra.Command{
	Use:   "station",
	Short: "Manage station profiles",
	Long: `Station profiles describe an operating setup: operator, rig, antenna and
the band, mode and power to use when a logged contact leaves them out.`,
}

var stationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List station profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listStations(cmd.Context(), cmd.OutOrStdout(), rt.logbook)
	},
}

var stationAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a station profile",
	Long: `Add a station profile.

Example:
  qsolog station add "Field Day" --operator W1AW --rig IC-705 --band 40m --mode CW --power 5 --default`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		st := qso.StationProfile{Name: args[0]}
		st.OperatorCallsign, _ = f.GetString("operator")
		st.Rig, _ = f.GetString("rig")
		st.Antenna, _ = f.GetString("antenna")
		st.DefaultBand, _ = f.GetString("band")
		st.DefaultMode, _ = f.GetString("mode")
		st.DefaultPowerW, _ = f.GetFloat64("power")
		st.IsDefault, _ = f.GetBool("default")

		if err := addStation(cmd.Context(), rt.logbook, catalog.Default(), &st); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added station %q (id %s)\n", st.Name, st.ID)
		return nil
	},
}

var stationDefaultCmd = &cobra.Command{
	Use:   "default <id>",
	Short: "Make a station profile the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := setDefaultStation(cmd.Context(), rt.logbook, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default station is now %q\n", st.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stationCmd)
	stationCmd.AddCommand(logbookCommand(stationListCmd))
	stationCmd.AddCommand(logbookCommand(stationAddCmd))
	stationCmd.AddCommand(logbookCommand(stationDefaultCmd))

	f := stationAddCmd.Flags()
	f.String("operator", "", "Operator callsign")
	f.String("rig", "", "Radio")
	f.String("antenna", "", "Antenna")
	f.String("band", "20m", "Default band")
	f.String("mode", "SSB", "Default mode")
	f.Float64("power", 100, "Default transmit power in watts")
	f.Bool("default", false, "Make this the default profile")
}

func listStations(ctx context.Context, out io.Writer, lb storage.Logbook) error {
	stations, err := lb.Stations(ctx)
	if err != nil {
		return errors.Wrap(err, "list stations")
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tOPERATOR\tBAND\tMODE\tPOWER\tID")
	for _, st := range stations {
		mark := ""
		if st.IsDefault {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%gW\t%s\n",
			mark, st.Name, st.OperatorCallsign, st.DefaultBand, st.DefaultMode, st.DefaultPowerW, st.ID)
	}
	return w.Flush()
}

func addStation(ctx context.Context, lb storage.Logbook, cat *catalog.Catalog, st *qso.StationProfile) error {
	st.Name = strings.TrimSpace(st.Name)
	switch {
	case st.Name == "":
		return errors.New("station name is required")
	case st.DefaultBand != "" && !cat.IsBand(st.DefaultBand):
		return errors.Newf("unknown band %q", st.DefaultBand)
	case st.DefaultMode != "" && !cat.IsMode(st.DefaultMode):
		return errors.Newf("unknown mode %q", st.DefaultMode)
	case st.DefaultPowerW < 0:
		return errors.New("power must not be negative")
	}
	st.OperatorCallsign = strings.ToUpper(st.OperatorCallsign)
	return errors.Wrap(lb.PutStation(ctx, st), "save station")
}

func setDefaultStation(ctx context.Context, lb storage.Logbook, id string) (qso.StationProfile, error) {
	st, err := findStation(ctx, lb, id)
	if err != nil {
		return qso.StationProfile{}, err
	}
	st.IsDefault = true
	if err := lb.PutStation(ctx, &st); err != nil {
		return qso.StationProfile{}, errors.Wrap(err, "save station")
	}
	return st, nil
}

func findStation(ctx context.Context, lb storage.Logbook, id string) (qso.StationProfile, error) {
	stations, err := lb.Stations(ctx)
	if err != nil {
		return qso.StationProfile{}, errors.Wrap(err, "list stations")
	}
	for _, st := range stations {
		if st.ID == id {
			return st, nil
		}
	}
	return qso.StationProfile{}, errors.Wrapf(storage.ErrNotFound, "station %s", id)
}
