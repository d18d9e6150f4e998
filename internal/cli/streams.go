package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/streamvest/internal/ledger"
	"github.com/roach88/streamvest/internal/stream"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Sender    string
	Recipient string
	Deposit   int64
	Rate      int64
	Start     uint64
	Cliff     uint64
	End       uint64
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a stream and escrow its deposit",
		Long: `Open a stream from sender to recipient. The deposit must equal
rate * (end - start) and moves from the sender into custody. The sender
must authorize; --sender defaults to the only --as principal.

Example:
  streamvest create --as alice --recipient bob --deposit 1000 --rate 1 --start 0 --end 1000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Sender, "sender", "", "funding principal (default: the --as principal)")
	cmd.Flags().StringVar(&opts.Recipient, "recipient", "", "receiving principal (required)")
	cmd.Flags().Int64Var(&opts.Deposit, "deposit", 0, "total amount to stream (required)")
	cmd.Flags().Int64Var(&opts.Rate, "rate", 0, "amount vested per second (required)")
	cmd.Flags().Uint64Var(&opts.Start, "start", 0, "vesting start time")
	cmd.Flags().Uint64Var(&opts.Cliff, "cliff", 0, "nothing is withdrawable before this time (default: start)")
	cmd.Flags().Uint64Var(&opts.End, "end", 0, "vesting end time (required)")
	_ = cmd.MarkFlagRequired("recipient")
	_ = cmd.MarkFlagRequired("deposit")
	_ = cmd.MarkFlagRequired("rate")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func runCreate(cmd *cobra.Command, opts *CreateOptions) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	rawSender := opts.Sender
	if rawSender == "" {
		if len(opts.As) != 1 {
			return s.out.Usage(fmt.Errorf("--sender is required unless exactly one --as is given"))
		}
		rawSender = opts.As[0]
	}
	sender, err := stream.ParsePrincipal(rawSender)
	if err != nil {
		return s.out.Usage(fmt.Errorf("--sender: %w", err))
	}
	recipient, err := stream.ParsePrincipal(opts.Recipient)
	if err != nil {
		return s.out.Usage(fmt.Errorf("--recipient: %w", err))
	}
	cliff := opts.Cliff
	if !cmd.Flags().Changed("cliff") {
		cliff = opts.Start
	}

	call, err := s.call()
	if err != nil {
		return err
	}
	id, err := s.ledger.CreateStream(cmd.Context(), call, stream.Params{
		Sender:        sender,
		Recipient:     recipient,
		DepositAmount: opts.Deposit,
		RatePerSecond: opts.Rate,
		StartTime:     opts.Start,
		CliffTime:     cliff,
		EndTime:       opts.End,
	})
	if err != nil {
		return s.out.Fail("create", err)
	}
	return s.out.Success(streamIDView{StreamID: id})
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <stream-id>",
		Short: "Pay out everything vested and not yet withdrawn",
		Long: `Transfer the vested, unwithdrawn amount of a stream to its recipient.
The recipient must authorize.

Example:
  streamvest withdraw 0 --as bob`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreamOp(cmd, rootOpts, "withdraw", args[0],
				func(ctx context.Context, s *session, call ledger.Call, id uint64) (interface{}, error) {
					amount, err := s.ledger.Withdraw(ctx, call, id)
					if err != nil {
						return nil, err
					}
					return amountView{StreamID: id, At: call.Now, Amount: amount, verb: "withdrew"}, nil
				})
		},
	}
}

// NewPauseCommand creates the pause command.
func NewPauseCommand(rootOpts *RootOptions) *cobra.Command {
	return newTransitionCommand(rootOpts, "pause", "Suspend withdrawals from a stream",
		func(l *ledger.Ledger) transition { return l.PauseStream })
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	return newTransitionCommand(rootOpts, "resume", "Re-enable withdrawals from a paused stream",
		func(l *ledger.Ledger) transition { return l.ResumeStream })
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := newTransitionCommand(rootOpts, "cancel", "Stop a stream and refund the unvested deposit",
		func(l *ledger.Ledger) transition { return l.CancelStream })
	cmd.Long = `Stop a stream. The unvested part of the deposit returns to the sender;
what has vested stays withdrawable by the recipient. The sender or the
admin must authorize.

Example:
  streamvest cancel 0 --as alice`
	return cmd
}

type transition func(ctx context.Context, call ledger.Call, id uint64) error

// newTransitionCommand builds a lifecycle command that reports the
// stream's status afterwards.
func newTransitionCommand(rootOpts *RootOptions, name, short string, op func(*ledger.Ledger) transition) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <stream-id>",
		Short: short,
		Long: fmt.Sprintf(`%s. The sender or the admin must authorize.

Example:
  streamvest %s 0 --as alice`, short, name),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreamOp(cmd, rootOpts, name, args[0],
				func(ctx context.Context, s *session, call ledger.Call, id uint64) (interface{}, error) {
					if err := op(s.ledger)(ctx, call, id); err != nil {
						return nil, err
					}
					rec, err := s.ledger.GetStreamState(ctx, id)
					if err != nil {
						return nil, err
					}
					return statusView{StreamID: id, Status: rec.Status}, nil
				})
		},
	}
}

// runStreamOp opens a session, parses the stream id, and runs fn as the
// command's caller at the command's time.
func runStreamOp(cmd *cobra.Command, opts *RootOptions, action, rawID string,
	fn func(context.Context, *session, ledger.Call, uint64) (interface{}, error)) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := parseStreamID(rawID)
	if err != nil {
		return s.out.Usage(err)
	}
	call, err := s.call()
	if err != nil {
		return err
	}
	result, err := fn(cmd.Context(), s, call, id)
	if err != nil {
		return s.out.Fail(action, err)
	}
	return s.out.Success(result)
}
