package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docmill/internal/config"
	"docmill/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight <folder>",
		Short: "Check external tools, credentials, and disk space for a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg, root)
			printPreflight(cmd, results)
			if !preflight.Passed(results) {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}
}

func printPreflight(cmd *cobra.Command, results []preflight.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	rows := make([][]string, 0, len(results))
	for _, result := range results {
		status := "FAIL"
		if result.Passed {
			status = "PASS"
		}
		rows = append(rows, []string{result.Name, colorizeStatus(status, colorize), result.Detail})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"check", "status", "detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))
}
