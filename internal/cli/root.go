package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/streamvest/internal/ledger"
)

// DefaultDatabase is the ledger file used when --db is not given.
const DefaultDatabase = "streamvest.db"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	As       []string
	At       uint64

	// atSet records whether --at was given; otherwise Clock supplies the time.
	atSet bool

	// Clock supplies ledger time when --at is absent. Defaults to the wall clock.
	Clock ledger.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the streamvest CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Clock: ledger.SystemClock{}}

	cmd := &cobra.Command{
		Use:   "streamvest",
		Short: "streamvest - continuous payment streams",
		Long: `A ledger of continuous payment streams.

A sender escrows a deposit that vests to a recipient at a fixed rate per
second between a start and end time, optionally behind a cliff. The
recipient withdraws what has vested; the sender or admin may pause,
resume or cancel.

Every mutating command runs as the principals named by --as and at the
ledger time given by --at (Unix seconds, default now).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.atSet = cmd.Flags().Changed("at")
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", DefaultDatabase, "path to SQLite ledger database")
	cmd.PersistentFlags().StringArrayVar(&opts.As, "as", nil, "principal authorizing the operation (repeatable)")
	cmd.PersistentFlags().Uint64Var(&opts.At, "at", 0, "ledger time in Unix seconds (default now)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewMintCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewWithdrawCommand(opts))
	cmd.AddCommand(NewPauseCommand(opts))
	cmd.AddCommand(NewResumeCommand(opts))
	cmd.AddCommand(NewCancelCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewAccruedCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
