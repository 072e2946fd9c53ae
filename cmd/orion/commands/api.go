package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wonny/orion/internal/api"
	"github.com/wonny/orion/internal/api/handlers"
)

var apiPort string

// apiCmd serves stored results over HTTP
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the read-only results API",
	Long: `Serve stored screening results over HTTP.

Endpoints:
  GET /health
  GET /metrics                  (when METRICS_ENABLED)
  GET /api/runs?limit=10
  GET /api/results/{symbol}?days=30
  GET /api/matches?days=7&limit=50
  GET /api/statistics

Example:
  orion api --port 8089`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVarP(&apiPort, "port", "p", "", "listen port (default: PORT)")
}

func runAPI(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	repo, err := a.repository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	var metricsHandler = promhttp.Handler()
	if !a.cfg.MetricsEnabled {
		metricsHandler = nil
	}

	router := api.NewRouter(handlers.NewResultsHandler(repo, a.log), metricsHandler, a.log)
	fmt.Fprintf(cmd.OutOrStdout(), "Orion API listening on :%s\n", a.cfg.Port)
	return api.New(":"+a.cfg.Port, router, a.log).Run(ctx)
}
