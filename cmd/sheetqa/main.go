// Command sheetqa parses spreadsheets and asks questions about them without running the server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/sheetqa/internal/config"
	"github.com/bryanwahyu/sheetqa/internal/domain/qa"
	"github.com/bryanwahyu/sheetqa/internal/infra/ai"
)

// clientFactory builds the Q&A client for the ask command.
type clientFactory func(ctx context.Context, cfg *config.Config) (qa.Client, func() error, error)

func main() {
	if err := newRootCommand(ai.NewClient).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sheetqa",
		Short:         "Ask questions about spreadsheet files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newParseCommand())
	cmd.AddCommand(newAskCommand(newClient))

	return cmd
}
