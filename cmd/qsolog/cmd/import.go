/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/qsolog/pkg/adif"
	"github.com/ssargent/qsolog/pkg/storage"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file.adi>",
	Short: "Import contacts from an ADIF file",
	Long: `Import contacts from an ADIF file into the logbook.

Records that fail validation are reported and skipped. Records matching a
logged contact with the same callsign, band and mode within two minutes are
skipped as duplicates. Use "-" to read from standard input.

With --preview the import runs against a throwaway copy of the logbook and
reports what would happen without saving anything.

Examples:
  qsolog import contest.adi
  qsolog import contest.adi --preview --verbose
  cat log.adi | qsolog import -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preview, _ := cmd.Flags().GetBool("preview")
		verbose, _ := cmd.Flags().GetBool("verbose")

		text, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		_, err = runImport(cmd.Context(), cmd.OutOrStdout(), rt.codec(), rt.logbook, text, preview, verbose)
		return err
	},
}

func init() {
	rootCmd.AddCommand(logbookCommand(importCmd))
	importCmd.Flags().Bool("preview", false, "Report what would be imported without saving")
	importCmd.Flags().BoolP("verbose", "v", false, "List every error and warning")
}

func readInput(stdin io.Reader, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), errors.Wrap(err, "read standard input")
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", name)
	}
	return string(data), nil
}

// runImport imports or previews text and prints the result summary. A text
// that is not ADIF is reported as an error.
func runImport(ctx context.Context, out io.Writer, codec *adif.Codec, lb storage.Logbook, text string, preview, verbose bool) (adif.ImportResult, error) {
	var res adif.ImportResult
	if preview {
		var err error
		if res, err = codec.Preview(ctx, text, lb); err != nil {
			return res, err
		}
	} else {
		res = codec.Import(ctx, text, lb)
	}

	if res.FormatFailed() {
		return res, adif.ErrInvalidFormat
	}

	if preview {
		fmt.Fprintln(out, "Preview only: nothing was saved.")
	}
	fmt.Fprintln(out, res.Summary())

	if verbose {
		for _, e := range res.Errors {
			fmt.Fprintf(out, "error: %s\n", e)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
	}
	return res, nil
}
