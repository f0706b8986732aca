/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/qsolog/pkg/adif"
	"github.com/ssargent/qsolog/pkg/config"
	"github.com/ssargent/qsolog/pkg/di"
	"github.com/ssargent/qsolog/pkg/logging"
	"github.com/ssargent/qsolog/pkg/storage"
	"go.uber.org/zap"
)

// Command annotations read by the root pre-run hook.
const (
	// annotationLogbook marks commands that need an open logbook.
	annotationLogbook = "qsolog/logbook"
	// annotationNoConfig marks commands that run before a config file exists.
	annotationNoConfig = "qsolog/no-config"
)

var container *di.Container

// SetContainer injects the dependency container used by every command.
func SetContainer(c *di.Container) {
	container = c
}

// runtime is the state shared by a single command invocation.
type runtime struct {
	configPath string
	cfg        *config.Config
	log        *zap.Logger
	logbook    storage.Logbook
}

// rt is set by the root pre-run hook and torn down by Execute.
var rt *runtime

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "qsolog",
	Short: "qsolog - amateur radio contact logbook",
	Long: `qsolog keeps a log of amateur radio contacts (QSOs).

It imports and exports ADIF files, exports CSV, records contacts by hand,
and serves the logbook over a REST API.

Examples:
  qsolog init --data-dir ~/.local/share/qsolog
  qsolog import contest.adi --preview
  qsolog log --call K1ABC --band 20m --mode SSB --rst-sent 59 --rst-rcvd 57
  qsolog export --format csv --range month -o month.csv`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		rt = r
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeRuntime(); err == nil {
		err = cerr
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().String("config", config.GetDefaultConfigPath(), "Path to the configuration file")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory (overrides the config file)")
	rootCmd.PersistentFlags().String("backend", "", "Storage backend: pebble, memory or postgres (overrides the config file)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides the config file)")
}

// loadRuntime resolves configuration from the file, the environment and
// flags, in that order, then opens the logbook when the command needs one.
func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	path, _ := cmd.Flags().GetString("config")
	r := &runtime{configPath: path}

	switch {
	case cmd.Annotations[annotationNoConfig] == "true" || !config.ConfigExists(path):
		r.cfg = config.DefaultConfig()
	default:
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		r.cfg = cfg
	}
	r.cfg.ApplyEnv()

	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		r.cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		r.cfg.Storage.Backend = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		r.cfg.Logging.Level = v
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	log, err := logging.New(r.cfg.Logging.Level, r.cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	r.log = log

	if cmd.Annotations[annotationLogbook] == "true" {
		if err := r.openLogbook(cmd.Context()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *runtime) openLogbook(ctx context.Context) error {
	if container == nil {
		return errors.New("dependency container not initialized")
	}
	lb, err := container.GetLogbookOpener().OpenLogbook(ctx, r.cfg, r.log)
	if err != nil {
		return errors.Wrap(err, "failed to open logbook")
	}
	r.logbook = lb
	return nil
}

func (r *runtime) codec() *adif.Codec {
	return adif.NewCodec(adif.Options{
		ProgramID:      r.cfg.ADIF.ProgramID,
		ProgramVersion: r.cfg.ADIF.ProgramVersion,
		Logger:         r.log.Named("adif"),
	})
}

func closeRuntime() error {
	if rt == nil {
		return nil
	}
	r := rt
	rt = nil
	if r.log != nil {
		_ = r.log.Sync()
	}
	if r.logbook != nil {
		return errors.Wrap(r.logbook.Close(), "close logbook")
	}
	return nil
}

// logbookCommand marks cmd as needing an open logbook.
func logbookCommand(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationLogbook] = "true"
	return cmd
}
