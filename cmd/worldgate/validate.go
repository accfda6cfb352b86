package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/worldgate/bootstrap"
	"github.com/artpar/worldgate/core/errors"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check that documents parse",
	Long: `Parse every document concurrently (bounded by parser.workers) and
report which ones fail. Exits non-zero when any document is invalid.

Examples:
  worldgate validate worlds/*.xml
  worldgate validate --config prod.yaml a.xml b.xml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	results, errs, err := a.Parser.Validate(cmd.Context(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ok, bad := marks(bootstrap.IsTerminal(out))
	failed := 0
	for i, path := range args {
		if errs[i] != nil {
			failed++
			fmt.Fprintf(out, "  %s %s\n      %s: %v\n", bad, path, errors.CodeOf(errs[i]), errs[i])
			continue
		}
		fmt.Fprintf(out, "  %s %s (%q, %d elements)\n", ok, path, results[i].Run.WorldName, results[i].Run.Elements)
	}

	fmt.Fprintln(out)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents invalid", failed, len(args))
	}
	fmt.Fprintf(out, "All %d documents are valid.\n", len(args))
	return nil
}

// marks returns the pass/fail markers, colored on terminals.
func marks(color bool) (string, string) {
	if !color {
		return "ok  ", "FAIL"
	}
	return "\033[32m✓\033[0m", "\033[31m✗\033[0m"
}
