package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/streamvest/internal/store"
	"github.com/roach88/streamvest/internal/stream"
)

// NewMintCommand creates the mint command.
func NewMintCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <account> <amount>",
		Short: "Credit tokens to an account",
		Long: `Credit tokens to an account out of thin air. This is the development
faucet; it raises the total supply by the same amount.

Example:
  streamvest mint alice 10000`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMint(cmd, rootOpts, args[0], args[1])
		},
	}
}

func runMint(cmd *cobra.Command, opts *RootOptions, rawAccount, rawAmount string) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	account, err := stream.ParsePrincipal(rawAccount)
	if err != nil {
		return s.out.Usage(err)
	}
	if account == s.ledger.Custody() {
		return s.out.Fail("mint", stream.NewValidationError("cannot mint into the custody account"))
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return s.out.Usage(err)
	}

	ctx := cmd.Context()
	if err := s.store.Mint(ctx, account, amount); err != nil {
		return s.out.Fail("mint", err)
	}
	balance, err := s.store.Balance(ctx, account)
	if err != nil {
		return s.out.Fail("mint", err)
	}
	s.logger.Info("minted", "account", account, "amount", amount)
	return s.out.Success(balanceView{Account: account, Amount: balance})
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [account]",
		Short: "Show token balances",
		Long: `Show one account's balance, or every non-zero balance and the total
minted supply.

Example:
  streamvest balance bob
  streamvest balance --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(cmd, rootOpts, args)
		},
	}
}

func runBalance(cmd *cobra.Command, opts *RootOptions, args []string) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if len(args) == 1 {
		account, err := stream.ParsePrincipal(args[0])
		if err != nil {
			return s.out.Usage(err)
		}
		amount, err := s.store.Balance(ctx, account)
		if err != nil {
			return s.out.Fail("balance", err)
		}
		return s.out.Success(balanceView{Account: account, Amount: amount})
	}

	bals, err := s.store.Balances(ctx)
	if err != nil {
		return s.out.Fail("balance", err)
	}
	total, err := s.store.TotalSupply(ctx)
	if err != nil {
		return s.out.Fail("balance", err)
	}
	if bals == nil {
		bals = []store.AccountBalance{}
	}
	return s.out.Success(balancesView{Balances: bals, TotalSupply: total})
}
