// Package cli is the finsheet command line: the long-running server and
// worker plus a few operator commands.
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "finsheet",
		Short: "Personal finance ledger kept in a spreadsheet",
		Long: `finsheet records income and expenses sent through a Telegram bot into a
monthly spreadsheet partition and serves read-only balances over HTTP.

Configuration comes from the environment, optionally via a .env file.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCommand(),
		newWorkerCommand(),
		newPartitionsCommand(),
		newInitCommand(),
		newSnapshotCommand(),
	)
	return root
}

// Execute runs the CLI until it finishes or SIGINT/SIGTERM arrives.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
