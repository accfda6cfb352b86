package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the worldgate HTTP API.

The server will:
  - Load configuration from worldgate.yaml (or --config)
  - Or load configuration from WORLDGATE_* environment variables
  - Open the run ledger
  - Reload parser and logging settings when the config file changes or on SIGHUP

Endpoints:
  POST /v1/documents/parse   Parse the request body
  GET  /v1/runs              Recent runs (?limit=)
  GET  /v1/runs/summary      Totals by outcome
  GET  /v1/runs/{id}         One run
  GET  /v1/classes           Registered entity and action classes
  GET  /healthz              Liveness
  GET  /metrics              Prometheus metrics (when enabled)

Examples:
  worldgate serve
  WORLDGATE_SERVER_PORT=9000 worldgate serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// Blocks until SIGINT/SIGTERM
	return a.Serve(cmd.Context())
}
