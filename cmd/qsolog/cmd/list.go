/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/qsolog/pkg/qso"
	"github.com/ssargent/qsolog/pkg/query"
	"github.com/ssargent/qsolog/pkg/storage"
)

var listFilter filterFlags

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List logged contacts, newest first",
	Long: `List logged contacts, newest first. Contacts without a time are never
listed.

Examples:
  qsolog list --limit 20
  qsolog list --band 20m --range week
  qsolog list --search k1 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		f, err := listFilter.filter()
		if err != nil {
			return err
		}
		return listContacts(cmd.Context(), cmd.OutOrStdout(), rt.logbook, f, limit, asJSON, time.Now())
	},
}

func init() {
	rootCmd.AddCommand(logbookCommand(listCmd))
	listCmd.Flags().IntP("limit", "n", 0, "Show at most this many contacts (0 for all)")
	listCmd.Flags().Bool("json", false, "Print JSON instead of a table")
	addFilterFlags(listCmd, &listFilter)
}

func listContacts(ctx context.Context, out io.Writer, lb storage.Logbook, f query.Filter, limit int, asJSON bool, now time.Time) error {
	contacts, err := lb.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list contacts")
	}
	matched := f.Apply(contacts, now)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(matched)
	}

	if len(matched) == 0 {
		fmt.Fprintln(out, "No contacts found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIME\tCALL\tBAND\tMODE\tFREQ\tSENT\tRCVD\tID")
	for _, c := range matched {
		ts, _ := c.Timestamp.Get()
		ts = ts.UTC()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			ts.Format("2006-01-02"), ts.Format("15:04"),
			c.Callsign, c.Band, c.Mode, frequency(c.FrequencyMHz),
			c.RSTSent, c.RSTReceived, c.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d contact(s)\n", len(matched), len(contacts))
	return nil
}

func frequency(v qso.Optional[float64]) string {
	if f := v.OrZero(); f > 0 {
		return strconv.FormatFloat(f, 'f', 3, 64)
	}
	return ""
}
