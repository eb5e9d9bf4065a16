package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"docmill/internal/pipeline"
	"docmill/internal/preflight"
	"docmill/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var upload bool
	var only []string
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run <folder>",
		Short: "Process a batch folder through all pipeline stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.buildBatchServices(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer services.Close()

			if !skipPreflight {
				results := preflight.RunAll(cmd.Context(), services.cfg, services.root)
				if !preflight.Passed(results) {
					printPreflight(cmd, results)
					return fmt.Errorf("preflight checks failed; fix the issues above or pass --skip-preflight")
				}
			}

			opts := workflow.Options{Force: force, Upload: upload}
			for _, name := range only {
				opts.Only = append(opts.Only, pipeline.StageName(name))
			}

			summary, err := services.runner.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reprocess files whose outputs already exist")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload cleaned PDFs to object storage after the stages finish")
	cmd.Flags().StringSliceVar(&only, "stage", nil, "Run only the named stages (rename, clean, convert, format)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip readiness checks before the run")
	return cmd
}

func printSummary(cmd *cobra.Command, summary workflow.Summary) {
	out := cmd.OutOrStdout()
	if n := len(summary.Collected); n > 0 {
		fmt.Fprintf(out, "Collected %d new document(s)\n", n)
	}

	rows := make([][]string, 0, len(summary.Stages))
	for _, stage := range summary.Stages {
		rows = append(rows, []string{
			string(stage.Name),
			strconv.Itoa(stage.Planned),
			strconv.Itoa(stage.Skipped),
			strconv.Itoa(stage.Succeeded),
			strconv.Itoa(stage.Quarantined),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Stage", "Planned", "Skipped", "Succeeded", "Quarantined"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
	fmt.Fprintf(out, "Total: %d succeeded, %d quarantined\n", summary.Succeeded(), summary.Quarantined())
}
