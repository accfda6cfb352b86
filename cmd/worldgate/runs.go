package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/worldgate/core/formatter"
	"github.com/artpar/worldgate/domain/run"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the run ledger",
	Long: `Show recent parses recorded in the run ledger.

Examples:
  worldgate runs
  worldgate runs --limit 5 --source world.xml
  worldgate runs --summary -o json
  worldgate runs --prune-before 720h`,
	RunE: runRuns,
}

var (
	runsLimit   int
	runsSource  string
	runsSummary bool
	runsPrune   time.Duration
)

var runColumns = []string{"id", "source", "status", "world", "elements", "duration", "created"}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")
	runsCmd.Flags().StringVar(&runsSource, "source", "", "only runs of this document")
	runsCmd.Flags().BoolVar(&runsSummary, "summary", false, "print totals instead of runs")
	runsCmd.Flags().DurationVar(&runsPrune, "prune-before", 0, "delete runs older than this age, then list what is left")
}

func runRuns(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if runsPrune > 0 {
		n, err := a.Parser.Prune(ctx, runsPrune)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Pruned %d runs older than %v.\n", n, runsPrune)
	}

	if runsSummary {
		s, err := a.Parser.Summary(ctx, runsLimit)
		if err != nil {
			return err
		}
		return f.FormatRecord(out, []string{"total", "failed", "elements", "avg_duration", "by_code"}, map[string]any{
			"total":        s.Total,
			"failed":       s.Failed,
			"elements":     s.Elements,
			"avg_duration": s.AvgDuration,
			"by_code":      s.ByCode,
		}, formatter.FormatOptions{})
	}

	var runs []run.Run
	if runsSource != "" {
		runs, err = a.Parser.History(ctx, runsSource, runsLimit)
	} else {
		runs, err = a.Parser.Runs(ctx, runsLimit)
	}
	if err != nil {
		return err
	}

	return f.FormatList(out, formatter.Listing{Kind: "runs", Columns: runColumns, Rows: runRows(runs)}, formatter.FormatOptions{})
}

// runRows flattens runs for output. Failed runs show their error code as
// the status.
func runRows(runs []run.Run) []map[string]any {
	rows := make([]map[string]any, len(runs))
	for i, r := range runs {
		status := string(r.Status)
		if !r.OK() {
			status = r.ErrorCode
		}
		rows[i] = map[string]any{
			"id":       r.ID,
			"source":   r.Source,
			"status":   status,
			"world":    r.WorldName,
			"elements": r.Elements,
			"duration": r.Duration,
			"created":  r.CreatedAt,
		}
	}
	return rows
}
