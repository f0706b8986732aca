/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/qsolog/pkg/adif"
	"github.com/ssargent/qsolog/pkg/csvexport"
	"github.com/ssargent/qsolog/pkg/query"
	"github.com/ssargent/qsolog/pkg/storage"
)

// Export formats.
const (
	formatADIF = "adif"
	formatCSV  = "csv"
)

var exportFilter filterFlags

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export contacts as ADIF or CSV",
	Long: `Export contacts as an ADIF 3.1.4 file or a CSV spreadsheet.

The filter flags narrow the export the same way they narrow "qsolog list".
When the filter matches no contacts the whole logbook is exported.

Examples:
  qsolog export -o log.adi
  qsolog export --format csv --band 20m --range year -o 20m.csv
  qsolog export --qsl pending > pending.adi`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		f, err := exportFilter.filter()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		var file *os.File
		if output != "" && output != "-" {
			if file, err = os.Create(output); err != nil {
				return errors.Wrapf(err, "create %s", output)
			}
			w = file
		}

		n, err := runExport(cmd.Context(), w, rt.codec(), rt.logbook, format, f, time.Now())
		if file != nil {
			if cerr := file.Close(); err == nil {
				err = errors.Wrapf(cerr, "close %s", output)
			}
		}
		if err != nil {
			return err
		}
		if file != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d QSO(s) to %s\n", n, output)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logbookCommand(exportCmd))
	exportCmd.Flags().StringP("format", "f", formatADIF, "Output format: adif or csv")
	exportCmd.Flags().StringP("output", "o", "", "Output file (default standard output)")
	addFilterFlags(exportCmd, &exportFilter)
}

// runExport writes the export set for f to w and returns how many contacts
// it contained.
func runExport(ctx context.Context, w io.Writer, codec *adif.Codec, lb storage.Logbook, format string, f query.Filter, now time.Time) (int, error) {
	if format != formatADIF && format != formatCSV {
		return 0, errors.Newf("unknown export format %q (want adif or csv)", format)
	}
	contacts, err := lb.List(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list contacts")
	}
	set := f.ExportSet(contacts, now)

	if format == formatCSV {
		return len(set), csvexport.Write(w, set)
	}
	return len(set), codec.ExportTo(w, set)
}
