package main

import (
	"fmt"
	"os"

	"github.com/dalemusser/tierhub/internal/app/system/qgraph"
	"github.com/dalemusser/tierhub/internal/app/system/tierpolicy"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate import files without touching the database",
}

var validateGraphCmd = &cobra.Command{
	Use:   "graph <file.yaml>",
	Short: "Check a question graph file for structural errors",
	Long: `Check a question graph file for structural errors: dangling
question references, unreachable questions, cycles, and missing guidance.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		file, err := qgraph.ParseImport(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		g, err := file.BuildGraph()
		if err != nil {
			return fmt.Errorf("validate %s: %w", args[0], err)
		}
		ordered, err := g.Ordered()
		if err != nil {
			return fmt.Errorf("validate %s: %w", args[0], err)
		}

		fmt.Printf("%s: ok (set %q, %d questions, %d guidance entries)\n",
			args[0], file.Set, len(ordered), len(file.Guidance))
		return nil
	},
}

var validatePoliciesCmd = &cobra.Command{
	Use:   "policies <file.yaml>",
	Short: "Check a tier policy file for structural errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		table, err := tierpolicy.Parse(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		fmt.Printf("%s: ok (%d rows)\n", args[0], len(table.Rows()))
		return nil
	},
}

func init() {
	validateCmd.AddCommand(validateGraphCmd)
	validateCmd.AddCommand(validatePoliciesCmd)
}
