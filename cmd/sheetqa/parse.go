package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/sheetqa/internal/domain/documents"
	"github.com/bryanwahyu/sheetqa/internal/infra/spreadsheet"
)

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the first sheet of a workbook as JSON records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := spreadsheet.ParseFile(args[0])
			if err != nil {
				return err
			}
			if records == nil {
				records = []documents.Record{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}
}
