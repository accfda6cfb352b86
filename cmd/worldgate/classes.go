package main

import (
	"github.com/spf13/cobra"

	"github.com/artpar/worldgate/core/formatter"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List the entity and action classes documents can name",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter()
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		classes := a.Registry.List()
		rows := make([]map[string]any, len(classes))
		for i, c := range classes {
			rows[i] = map[string]any{"class": c.Name, "role": c.Kind}
		}
		return f.FormatList(cmd.OutOrStdout(), formatter.Listing{
			Kind:    "classes",
			Columns: []string{"class", "role"},
			Rows:    rows,
		}, formatter.FormatOptions{})
	},
}

func init() {
	rootCmd.AddCommand(classesCmd)
}
