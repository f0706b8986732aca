/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/qsolog/pkg/query"
)

// filterFlags are the browse filters shared by list and export.
type filterFlags struct {
	search    string
	band      string
	mode      string
	station   string
	dateRange string
	qsl       string
}

func addFilterFlags(cmd *cobra.Command, f *filterFlags) {
	cmd.Flags().StringVar(&f.search, "search", "", "Match callsign, grid, DXCC or QTH (case-insensitive)")
	cmd.Flags().StringVar(&f.band, "band", "", "Only contacts on this band")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Only contacts in this mode")
	cmd.Flags().StringVar(&f.station, "station", "", "Only contacts made from this station ID")
	cmd.Flags().StringVar(&f.dateRange, "range", "all", "Date range: all, today, yesterday, week, month or year")
	cmd.Flags().StringVar(&f.qsl, "qsl", "all", "QSL state: all, sent, received or pending")
}

func (f filterFlags) filter() (query.Filter, error) {
	dr, err := query.ParseDateRange(f.dateRange)
	if err != nil {
		return query.Filter{}, err
	}
	qsl, err := query.ParseQSLFilter(f.qsl)
	if err != nil {
		return query.Filter{}, err
	}
	return query.Filter{
		Search:    f.search,
		Band:      f.band,
		Mode:      f.mode,
		StationID: f.station,
		DateRange: dr,
		QSL:       qsl,
	}, nil
}
