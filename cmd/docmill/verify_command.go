package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docmill/internal/verify"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "verify <folder>",
		Short: "Score formatted documents against their cleaned PDFs",
		Args:  cobra.ExactArgs(1),
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

			printReport(cmd, report)
			if csvPath != "" {
				if err := report.WriteCSV(csvPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", csvPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Also write the report to a CSV file")
	return cmd
}

// runVerification verifies every formatted document and records the runs in
// the history store when enabled.
func runVerification(cmd *cobra.Command, services *batchServices) (verify.Report, error) {
	docs, err := services.verifyDocuments()
	if err != nil {
		return verify.Report{}, err
	}

	var history *verify.History
	if path := services.historyPath(); path != "" {
		history, err = verify.OpenHistory(path)
		if err != nil {
			return verify.Report{}, err
		}
		defer history.Close()
	}

	var report verify.Report
	for _, doc := range docs {
		record := services.verifier.Verify(cmd.Context(), doc)
		report.Records = append(report.Records, record)
		if history != nil {
			if err := history.Append(cmd.Context(), record); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}

func printReport(cmd *cobra.Command, report verify.Report) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	statusColumn := columnIndex(verify.Headers(), "status")
	rows := make([][]string, 0, len(report.Records))
	for _, record := range report.Records {
		row := record.Row()
		if statusColumn >= 0 && statusColumn < len(row) {
			row[statusColumn] = colorizeStatus(row[statusColumn], colorize)
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(out, renderTable(verify.Headers(), rows, reportAlignments()))

	ok, warning, failed := report.Counts()
	fmt.Fprintf(out, "Verified %d document(s): %d ok, %d warnings, %d failed\n",
		len(report.Records), ok, warning, failed)
}

func reportAlignments() []columnAlignment {
	headers := verify.Headers()
	aligns := make([]columnAlignment, len(headers))
	for i, header := range headers {
		switch header {
		case "pdf pages", "markers", "accuracy":
			aligns[i] = alignRight
		default:
			aligns[i] = alignLeft
		}
	}
	return aligns
}

func columnIndex(headers []string, name string) int {
	for i, header := range headers {
		if header == name {
			return i
		}
	}
	return -1
}
