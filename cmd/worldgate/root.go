package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/worldgate/bootstrap"
	"github.com/artpar/worldgate/core/formatter"
)

var (
	// Global flags
	cfgFile  string
	noLedger bool
	output   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "worldgate",
	Short: "Build typed world trees from XML documents",
	Long: `worldgate parses World/Sector/Entity/Action documents into typed,
hierarchical attribute trees and records every parse in a run ledger.

Quick start:
  worldgate parse world.xml          # Parse and print the tree
  worldgate validate worlds/*.xml    # Check many documents at once
  worldgate serve                    # Start the HTTP API

Ledger:
  worldgate runs                     # Recent parses
  worldgate runs --summary           # Totals by outcome`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "worldgate.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&noLedger, "no-ledger", false, "keep the run ledger in memory")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format: "+strings.Join(formatter.List(), ", "))
}

// outputFormatter resolves the --output flag.
func outputFormatter() (formatter.Formatter, error) {
	return formatter.Get(output)
}

func newApp(cmd *cobra.Command) (*bootstrap.App, error) {
	a, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
		LogOutput:  cmd.ErrOrStderr(),
		Ephemeral:  noLedger,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing: %w", err)
	}
	return a, nil
}
