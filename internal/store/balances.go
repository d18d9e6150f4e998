package store

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/streamvest/internal/stream"
)

// AccountBalance is one row of the balance table.
type AccountBalance struct {
	Account stream.Principal `json:"account"`
	Amount  int64            `json:"amount"`
}

// Mint credits amount of new token supply to account. Mint is the only
// way value enters the ledger; TotalSupply tracks the running sum.
func (s *Store) Mint(ctx context.Context, account stream.Principal, amount int64) error {
	if account == "" {
		return stream.NewValidationError("mint account is required")
	}
	if amount <= 0 {
		return stream.NewValidationError("mint amount must be positive")
	}

	return s.withTx(ctx, true, func(t *Tx) error {
		total, _, err := t.counter(ctx, counterTotalMinted)
		if err != nil {
			return err
		}
		if total > math.MaxInt64-amount {
			return stream.NewBalanceOverflowError(account, total, amount)
		}
		if err := t.credit(ctx, account, amount); err != nil {
			return err
		}
		return t.setCounter(ctx, counterTotalMinted, total+amount)
	})
}

// Balance returns the token balance of account. Unknown accounts hold 0.
func (s *Store) Balance(ctx context.Context, account stream.Principal) (int64, error) {
	var amount int64
	err := s.withTx(ctx, false, func(t *Tx) error {
		var err error
		amount, err = t.balance(ctx, account)
		return err
	})
	return amount, err
}

// Balances returns every non-empty account ordered by name.
func (s *Store) Balances(ctx context.Context) ([]AccountBalance, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT account, amount FROM balances WHERE amount > 0 ORDER BY account ASC")
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	var out []AccountBalance
	for rows.Next() {
		var (
			account string
			amount  int64
		)
		if err := rows.Scan(&account, &amount); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, AccountBalance{Account: stream.Principal(account), Amount: amount})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return out, nil
}

// TotalSupply returns the sum of every Mint so far. Transfers between
// accounts never change it, so it always equals the sum of all balances.
func (s *Store) TotalSupply(ctx context.Context) (int64, error) {
	var total int64
	err := s.withTx(ctx, false, func(t *Tx) error {
		var err error
		total, _, err = t.counter(ctx, counterTotalMinted)
		return err
	})
	return total, err
}
