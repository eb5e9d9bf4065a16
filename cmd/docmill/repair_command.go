package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docmill/internal/repair"
	"docmill/internal/verify"
)

func newRepairCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "repair <folder>",
		Short: "Verify a batch and remediate documents that failed",
		Long: "Verify every formatted document, pick the minimal repair strategy for " +
			"each failure, and execute it. At most one strategy is applied per " +
			"document per invocation.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.buildBatchServices(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer services.Close()

			report, err := runVerification(cmd, services)
			if err != nil {
				return err
			}

			needy := report.NeedsRepair()
			if len(needy) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All documents verified clean; nothing to repair")
				return nil
			}

			docs, err := services.verifyDocuments()
			if err != nil {
				return err
			}
			byBase := make(map[string]verify.Document, len(docs))
			for _, doc := range docs {
				byBase[doc.Base] = doc
			}

			if dryRun {
				printStrategies(cmd, needy)
				return nil
			}

			repairer := repair.New(services.cfg, services.root, services.dispatcher,
				services.stages.RepairTransforms(), services.verifier, services.logger)

			rows := make([][]string, 0, len(needy))
			for _, record := range needy {
				summary := repairer.Repair(cmd.Context(), record, byBase[record.Base])
				rows = append(rows, repairRow(summary))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"document", "strategy", "repaired", "post status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the selected strategies without executing them")
	return cmd
}

func printStrategies(cmd *cobra.Command, records []verify.Record) {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			record.Base,
			string(record.OverallStatus),
			fmt.Sprintf("%.0f%%", record.ContentAccuracy),
			string(repair.Select(record)),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"document", "status", "accuracy", "strategy"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func repairRow(summary repair.Summary) []string {
	post := "-"
	if summary.Reverified {
		post = string(summary.PostStatus)
	}
	repaired := yesNo(summary.Success)
	if summary.Err != nil {
		repaired = summary.Err.Error()
	}
	return []string{summary.Base, string(summary.Strategy), repaired, post}
}
