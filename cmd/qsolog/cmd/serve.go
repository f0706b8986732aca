/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/qsolog/pkg/api"
	"github.com/ssargent/qsolog/pkg/config"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Serve the logbook over a REST API under /api/v1, with Prometheus metrics
at /metrics.

Requests must carry the configured API key in the X-API-Key header. When the
configured key is "auto" a key is generated for this run and logged.

Examples:
  qsolog serve
  qsolog serve --bind 0.0.0.0 --port 9090`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			return errors.New("dependency container not initialized")
		}
		serverConfig, err := serverConfigFrom(cmd, rt.cfg)
		if err != nil {
			return err
		}
		if rt.cfg.Security.APIKey == "auto" {
			rt.log.Info("generated API key for this run", zap.String("api_key", serverConfig.APIKey))
		}

		server := container.GetServerFactory().CreateServer(rt.logbook, serverConfig, api.Options{
			Codec:  rt.codec(),
			Logger: rt.log.Named("api"),
		})
		return server.ListenAndServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(logbookCommand(serveCmd))
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides the config file)")
	serveCmd.Flags().String("bind", "", "Address to bind (overrides the config file)")
	serveCmd.Flags().Int64("max-import-bytes", 32<<20, "Largest ADIF upload accepted")
}

// serverConfigFrom merges the serve flags over cfg.
func serverConfigFrom(cmd *cobra.Command, cfg *config.Config) (api.ServerConfig, error) {
	sc := api.ServerConfig{
		Port:   cfg.Port,
		Bind:   cfg.Bind,
		APIKey: cfg.Security.APIKey,
	}
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		sc.Port = v
	}
	if v, _ := cmd.Flags().GetString("bind"); v != "" {
		sc.Bind = v
	}
	sc.MaxImportBytes, _ = cmd.Flags().GetInt64("max-import-bytes")

	if sc.APIKey == "auto" {
		key, err := config.GenerateSecureKey(32)
		if err != nil {
			return api.ServerConfig{}, err
		}
		sc.APIKey = key
	}
	return sc, nil
}
