/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/qsolog/pkg/config"
	"github.com/ssargent/qsolog/pkg/di"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file and an empty logbook",
	Long: `Create a qsolog configuration file with a freshly generated API key,
open the configured logbook and seed the default station profiles
(Home, Portable and Mobile).

Examples:
  qsolog init
  qsolog init --data-dir ~/.local/share/qsolog
  qsolog init --config ./qsolog.yaml --force`,
	Annotations: map[string]string{annotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if container == nil {
			return errors.New("dependency container not initialized")
		}
		_, err := initialize(cmd.Context(), cmd.OutOrStdout(), rt.configPath, rt.cfg, force, container.GetLogbookOpener())
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
}

// initialize writes a new configuration at path, based on base, and seeds the
// logbook it points at. An existing file is kept unless force is set.
func initialize(ctx context.Context, out io.Writer, path string, base *config.Config, force bool, opener di.LogbookOpener) (*config.Config, error) {
	if config.ConfigExists(path) && !force {
		fmt.Fprintf(out, "Configuration already exists at %s. Use --force to overwrite it.\n", path)
		return nil, nil
	}

	cfg, err := config.BootstrapConfig(path, base.DataDir)
	if err != nil {
		return nil, err
	}
	// Environment and flag overrides apply to the new file as well.
	cfg.Storage = base.Storage
	cfg.Logging = base.Logging
	if err := config.SaveConfig(cfg, path); err != nil {
		return nil, err
	}

	lb, err := opener.OpenLogbook(ctx, cfg, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open logbook")
	}
	stations, err := lb.Stations(ctx)
	if cerr := lb.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "qsolog initialized\n")
	fmt.Fprintf(out, "Config file: %s\n", path)
	fmt.Fprintf(out, "Backend:     %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend == config.BackendPebble {
		fmt.Fprintf(out, "Logbook:     %s\n", cfg.PebbleDir())
	}
	fmt.Fprintf(out, "Stations:    %d\n", len(stations))
	fmt.Fprintf(out, "API key:     %s\n", cfg.Security.APIKey)
	return cfg, nil
}
