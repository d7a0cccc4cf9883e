package main

import (
	"context"
	"fmt"
	"os"

	guidancestore "github.com/dalemusser/tierhub/internal/app/store/guidance"
	policystore "github.com/dalemusser/tierhub/internal/app/store/policies"
	questionstore "github.com/dalemusser/tierhub/internal/app/store/questions"
	"github.com/dalemusser/tierhub/internal/app/system/qgraph"
	"github.com/dalemusser/tierhub/internal/app/system/tierpolicy"
	"github.com/dalemusser/tierhub/internal/app/system/timeouts"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import question graphs and policy tables",
}

var importGraphCmd = &cobra.Command{
	Use:   "graph <file.yaml>",
	Short: "Import a question graph file into the database",
	Long: `Import a question graph file into the database.

The import is idempotent against question names: unchanged questions keep
their current version, changed questions get a new version, and recorded
opinions keep pointing at the versions their classifiers actually answered.`,
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
		if _, err := file.BuildGraph(); err != nil {
			return fmt.Errorf("validate %s: %w", args[0], err)
		}

		db, cleanup, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.Batch())
		defer cancel()

		qs := questionstore.New(db)
		if err := qs.Import(ctx, file); err != nil {
			return fmt.Errorf("import question set %q: %w", file.Set, err)
		}
		set, err := qs.GetSetByName(ctx, file.Set)
		if err != nil {
			return err
		}
		gs := guidancestore.New(db)
		for _, g := range file.Guidance {
			if err := gs.Upsert(ctx, set.ID, g); err != nil {
				return fmt.Errorf("upsert guidance %q: %w", g.Name, err)
			}
		}

		fmt.Printf("imported set %q: %d questions, %d guidance entries\n",
			file.Set, len(file.Questions), len(file.Guidance))
		return nil
	},
}

var importPoliciesCmd = &cobra.Command{
	Use:   "policies [file.yaml]",
	Short: "Replace the tier policy table",
	Long: `Replace the tier policy table with the rows in the given file,
or with the embedded default table when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := tierpolicy.Load()
		if len(args) == 1 {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			table, err = tierpolicy.Parse(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
		}
		rows := table.Rows()

		db, cleanup, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.Batch())
		defer cancel()
		if err := policystore.New(db).Replace(ctx, rows); err != nil {
			return err
		}
		fmt.Printf("replaced tier policy table: %d rows\n", len(rows))
		return nil
	},
}

func init() {
	importCmd.AddCommand(importGraphCmd)
	importCmd.AddCommand(importPoliciesCmd)
}
