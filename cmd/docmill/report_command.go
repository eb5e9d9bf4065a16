package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"docmill/internal/pipeline"
	"docmill/internal/verify"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "report <folder> [document]",
		Short: "Show stored verification outcomes",
		Long: "Without a document argument, shows the most recent verification run " +
			"for every formatted document in the batch. With one, shows that " +
			"document's full run history, newest first.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.buildBatchServices(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer services.Close()

			path := services.historyPath()
			if path == "" {
				return fmt.Errorf("verification history is disabled in the configuration")
			}
			history, err := verify.OpenHistory(path)
			if err != nil {
				return err
			}
			defer history.Close()

			if len(args) == 2 {
				return printDocumentHistory(cmd, history, pipeline.NormalizeBase(args[1]), limit)
			}
			return printLatestRuns(cmd, services, history)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show per document")
	return cmd
}

func printDocumentHistory(cmd *cobra.Command, history *verify.History, base string, limit int) error {
	entries, err := history.Runs(cmd.Context(), base, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No verification runs recorded for %s\n", base)
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, historyRow(entry))
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(historyHeaders(), rows, historyAlignments()))
	return nil
}

func printLatestRuns(cmd *cobra.Command, services *batchServices, history *verify.History) error {
	formatted, err := pipeline.Scan(filepath.Join(services.root, pipeline.DirFormatted), ".txt")
	if err != nil {
		return err
	}

	var rows [][]string
	for _, base := range formatted.Bases() {
		stages, err := pipeline.History(services.cfg, services.root, base)
		if err != nil {
			return err
		}
		trail := strings.Join(stages, " ")

		entries, err := history.Runs(cmd.Context(), base, 1)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			rows = append(rows, []string{base, trail, "-", "-", "-", "-", "never verified"})
			continue
		}
		rows = append(rows, append([]string{base, trail}, historyRow(entries[0])[1:]...))
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No formatted documents in this batch")
		return nil
	}
	headers := append([]string{"document", "stages"}, historyHeaders()[1:]...)
	aligns := append([]columnAlignment{alignLeft, alignLeft}, historyAlignments()[1:]...)
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
	return nil
}

func historyHeaders() []string {
	return []string{"document", "status", "pdf pages", "markers", "accuracy", "verified at"}
}

func historyAlignments() []columnAlignment {
	return []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}
}

func historyRow(entry verify.HistoryEntry) []string {
	return []string{
		entry.Base,
		string(entry.Status),
		strconv.Itoa(entry.PDFPages),
		strconv.Itoa(entry.Markers),
		fmt.Sprintf("%.0f%%", entry.Accuracy),
		entry.VerifiedAt.Local().Format("2006-01-02 15:04:05"),
	}
}
