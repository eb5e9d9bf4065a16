package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"docmill/internal/config"
	"docmill/internal/quarantine"
)

func newQuarantineCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "quarantine <folder>",
		Short: "List quarantined documents and their failure records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			records, err := quarantine.New(root).List()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Quarantine is empty")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					record.Base,
					record.Stage,
					record.Kind,
					strconv.Itoa(record.Attempts),
					record.QuarantinedAt.Local().Format("2006-01-02 15:04:05"),
					record.Message,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"document", "stage", "kind", "attempts", "quarantined at", "message"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
