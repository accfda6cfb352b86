package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/formatter"
	"github.com/artpar/worldgate/core/world"
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Parse a world document and print its tree",
	Long: `Parse a world document and print the resulting attribute tree.

Examples:
  worldgate parse world.xml
  worldgate parse world.xml -o json
  worldgate parse world.xml -o yaml --no-ledger`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Parser.ParseFile(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s [%s]", err, errors.CodeOf(err))
	}

	tree := world.Dump(res.World.Scope())
	out := cmd.OutOrStdout()
	if f.Name() != "table" {
		return f.FormatValue(out, tree, formatter.FormatOptions{})
	}

	printTree(out, tree, 0)
	fmt.Fprintf(out, "\n%d elements, run %s\n", res.Run.Elements, res.Run.ID)
	return nil
}

// printTree writes t as an indented outline.
func printTree(w io.Writer, t world.Tree, depth int) {
	pad := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s %q\n", pad, t.Role, t.Name)
	for _, a := range t.Attributes {
		if len(a.Children) > 0 {
			fmt.Fprintf(w, "%s  %s:\n", pad, a.Name)
			for _, c := range a.Children {
				printTree(w, c, depth+2)
			}
			continue
		}
		fmt.Fprintf(w, "%s  %s (%s) = %s\n", pad, a.Name, a.Kind, strings.Join(a.Values, ", "))
	}
}
