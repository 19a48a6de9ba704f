package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/sdpower/agentusage/internal/commands"
)

func main() {
	ctx := context.Background()

	rootCmd := &cobra.Command{
		Use:           "agentusage",
		Short:         "Claude and Codex usage summary",
		Long:          `A CLI tool that reconstructs Claude and Codex token usage and cost from local JSONL session logs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		commands.NewSummaryCommand(),
		commands.NewPathsCommand(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
