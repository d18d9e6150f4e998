package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/streamvest/internal/genesis"
	"github.com/roach88/streamvest/internal/stream"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Token   string
	Admin   string
	Genesis string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure a new ledger",
		Long: `Configure the ledger's token and admin. A ledger is configured exactly once.

With --token and --admin the admin must authorize via --as. With --genesis
the CUE file's admin is trusted and its initial balances are minted.

Example:
  streamvest init --token USDC --admin treasury --as treasury
  streamvest init --genesis genesis.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Token, "token", "", "token identifier")
	cmd.Flags().StringVar(&opts.Admin, "admin", "", "admin principal")
	cmd.Flags().StringVar(&opts.Genesis, "genesis", "", "CUE genesis file")
	cmd.MarkFlagsMutuallyExclusive("genesis", "token")
	cmd.MarkFlagsMutuallyExclusive("genesis", "admin")
	cmd.MarkFlagsRequiredTogether("token", "admin")
	cmd.MarkFlagsOneRequired("genesis", "token")

	return cmd
}

func runInit(cmd *cobra.Command, opts *InitOptions) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()

	if opts.Genesis != "" {
		g, err := genesis.Load(opts.Genesis)
		if err != nil {
			var gerr *genesis.Error
			if errors.As(err, &gerr) {
				_ = s.out.Error(gerr.Code, gerr.Error(), nil)
			} else {
				_ = s.out.Error(CodeUsage, err.Error(), nil)
			}
			return WrapExitError(ExitCommandError, "failed to load genesis", err)
		}
		s.logger.Info("applying genesis", "file", opts.Genesis, "mints", len(g.Mints))
		if err := genesis.Apply(ctx, s.ledger, s.store, g, s.now()); err != nil {
			return s.out.Fail("init", err)
		}
		return s.out.Success(configView{Token: g.Token, Admin: g.Admin})
	}

	token, err := stream.ParsePrincipal(opts.Token)
	if err != nil {
		return s.out.Usage(fmt.Errorf("--token: %w", err))
	}
	admin, err := stream.ParsePrincipal(opts.Admin)
	if err != nil {
		return s.out.Usage(fmt.Errorf("--admin: %w", err))
	}
	call, err := s.call()
	if err != nil {
		return err
	}
	cfg := stream.Config{Token: token, Admin: admin}
	if err := s.ledger.Configure(ctx, call, cfg); err != nil {
		return s.out.Fail("init", err)
	}
	return s.out.Success(configView(cfg))
}
