/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/qsolog/pkg/query"
	"github.com/ssargent/qsolog/pkg/storage"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the logbook",
	Long: `Show totals for the logbook: contacts by band and mode, activity over
the last 30 days, QSL counts, unique callsigns and DXCC entities.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return showStats(cmd.Context(), cmd.OutOrStdout(), rt.logbook, asJSON, time.Now())
	},
}

func init() {
	rootCmd.AddCommand(logbookCommand(statsCmd))
	statsCmd.Flags().Bool("json", false, "Print JSON instead of text")
}

func showStats(ctx context.Context, out io.Writer, lb storage.Logbook, asJSON bool, now time.Time) error {
	contacts, err := lb.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list contacts")
	}
	a := query.Summarize(contacts, now)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total QSOs:\t%d\n", a.Total)
	fmt.Fprintf(w, "Unique callsigns:\t%d\n", a.UniqueCallsigns)
	fmt.Fprintf(w, "DXCC entities:\t%d\n", a.DXCCEntities)
	fmt.Fprintf(w, "QSL sent:\t%d\n", a.QSLSent)
	fmt.Fprintf(w, "QSL received:\t%d\n", a.QSLReceived)
	writeCounts(w, "By band", a.ByBand)
	writeCounts(w, "By mode", a.ByMode)
	writeCounts(w, fmt.Sprintf("Last %d days", query.RecentDays), a.ByDay)
	return w.Flush()
}

// writeCounts prints counts largest first, ties by key.
func writeCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	keys := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		if n := cmp.Compare(counts[b], counts[a]); n != 0 {
			return n
		}
		return cmp.Compare(a, b)
	})
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\t%d\n", k, counts[k])
	}
}
