package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/streamvest/internal/ledger"
	"github.com/roach88/streamvest/internal/stream"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <stream-id>",
		Short: "Show a stream and what it owes",
		Long: `Show a stream's record together with its accrued and owed amounts at
the ledger time.

Example:
  streamvest show 0 --at 1700000500`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreamOp(cmd, rootOpts, "show", args[0],
				func(ctx context.Context, s *session, call ledger.Call, id uint64) (interface{}, error) {
					rec, err := s.ledger.GetStreamState(ctx, id)
					if err != nil {
						return nil, err
					}
					accrued, err := stream.Accrued(rec, call.Now)
					if err != nil {
						return nil, err
					}
					owed, err := stream.Owed(rec, call.Now)
					if err != nil {
						return nil, err
					}
					return showView{recordView: recordView(rec), At: call.Now, Accrued: accrued, Owed: owed}, nil
				})
		},
	}
}

// NewAccruedCommand creates the accrued command.
func NewAccruedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "accrued <stream-id>",
		Short: "Compute how much of a stream has vested",
		Long: `Compute the total vested amount of a stream at the ledger time,
including amounts already withdrawn.

Example:
  streamvest accrued 0 --at 1700000500`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreamOp(cmd, rootOpts, "accrued", args[0],
				func(ctx context.Context, s *session, call ledger.Call, id uint64) (interface{}, error) {
					amount, err := s.ledger.CalculateAccrued(ctx, id, call.Now)
					if err != nil {
						return nil, err
					}
					return amountView{StreamID: id, At: call.Now, Amount: amount, verb: "accrued"}, nil
				})
		},
	}
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "config",
		Short:         "Show the ledger configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			cfg, err := s.ledger.GetConfig(cmd.Context())
			if err != nil {
				return s.out.Fail("config", err)
			}
			return s.out.Success(configView(cfg))
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var participant string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List streams",
		Long: `List streams in id order, optionally only those a principal sends or
receives.

Example:
  streamvest list --participant bob`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			var p stream.Principal
			if participant != "" {
				p, err = stream.ParsePrincipal(participant)
				if err != nil {
					return s.out.Usage(err)
				}
			}
			recs, err := s.ledger.ListStreams(cmd.Context(), p)
			if err != nil {
				return s.out.Fail("list", err)
			}
			return s.out.Success(newRecordsView(recs))
		},
	}

	cmd.Flags().StringVar(&participant, "participant", "", "only streams this principal sends or receives")
	return cmd
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		streamID uint64
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the operation journal",
		Long: `Show committed operations in the order they were applied.

Example:
  streamvest log --stream 0
  streamvest log --limit 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			filter := stream.EventFilter{Limit: limit}
			if cmd.Flags().Changed("stream") {
				filter.StreamID = &streamID
			}
			events, err := s.ledger.Events(cmd.Context(), filter)
			if err != nil {
				return s.out.Fail("log", err)
			}
			if events == nil {
				events = []stream.Event{}
			}
			return s.out.Success(eventsView(events))
		},
	}

	cmd.Flags().Uint64Var(&streamID, "stream", 0, "only events for this stream")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of events (0 for all)")
	return cmd
}
