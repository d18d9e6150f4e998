package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/streamvest/internal/auth"
	"github.com/roach88/streamvest/internal/ledger"
	"github.com/roach88/streamvest/internal/store"
	"github.com/roach88/streamvest/internal/stream"
	"github.com/roach88/streamvest/internal/testutil"
)

const (
	admin     stream.Principal = "admin"
	sender    stream.Principal = "sender"
	recipient stream.Principal = "recipient"
	outsider  stream.Principal = "mallory"
)

// fixture is a configured ledger over a fresh SQLite store.
type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *store.Store
	ledger *ledger.Ledger
	clock  *testutil.ManualClock
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newFixture opens a store, configures the ledger and funds the sender.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := newUnconfigured(t)
	require.NoError(t, f.ledger.Configure(f.ctx, f.call(admin), stream.Config{Token: "USDC", Admin: admin}))
	require.NoError(t, f.store.Mint(f.ctx, sender, 100_000))
	return f
}

func newUnconfigured(t *testing.T) *fixture {
	t.Helper()
	s := openStore(t)
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  s,
		ledger: ledger.New(s, ledger.WithIDGenerator(testutil.NewSequentialIDs("ev"))),
		clock:  testutil.NewManualClock(0),
	}
}

// call builds a Call for the given principals at the fixture clock.
func (f *fixture) call(ps ...stream.Principal) ledger.Call {
	return ledger.At(auth.As(ps...), f.clock.Now())
}

// at builds a Call for the given principal at time now.
func (f *fixture) at(now uint64, p stream.Principal) ledger.Call {
	f.clock.Set(now)
	return f.call(p)
}

func (f *fixture) create(p stream.Params) uint64 {
	f.t.Helper()
	id, err := f.ledger.CreateStream(f.ctx, f.call(p.Sender), p)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) state(id uint64) stream.Record {
	f.t.Helper()
	rec, err := f.ledger.GetStreamState(f.ctx, id)
	require.NoError(f.t, err)
	return rec
}

func (f *fixture) balance(p stream.Principal) int64 {
	f.t.Helper()
	b, err := f.store.Balance(f.ctx, p)
	require.NoError(f.t, err)
	return b
}

// requireConserved checks that custody holds exactly what every stream
// still owes and that no value was created or destroyed.
func (f *fixture) requireConserved() {
	f.t.Helper()

	recs, err := f.ledger.ListStreams(f.ctx, "")
	require.NoError(f.t, err)

	var held int64
	for _, r := range recs {
		h, err := stream.Held(r)
		require.NoError(f.t, err)
		held += h
	}
	require.Equal(f.t, held, f.balance(f.ledger.Custody()), "custody balance")

	total, err := f.store.TotalSupply(f.ctx)
	require.NoError(f.t, err)
	bals, err := f.store.Balances(f.ctx)
	require.NoError(f.t, err)
	var sum int64
	for _, b := range bals {
		sum += b.Amount
	}
	require.Equal(f.t, total, sum, "sum of balances")
}

func params(deposit, rate int64, start, cliff, end uint64) stream.Params {
	return stream.Params{
		Sender:        sender,
		Recipient:     recipient,
		DepositAmount: deposit,
		RatePerSecond: rate,
		StartTime:     start,
		CliffTime:     cliff,
		EndTime:       end,
	}
}

var errInjected = errors.New("injected failure")

// faultyStore wraps a Store and fails chosen Tx capabilities on demand,
// after any writes the operation made earlier in the same transaction.
type faultyStore struct {
	*store.Store
	failMove   bool
	failAppend bool
}

func (s *faultyStore) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	return s.Store.Update(ctx, func(tx ledger.Tx) error {
		return fn(&faultyTx{Tx: tx, s: s})
	})
}

type faultyTx struct {
	ledger.Tx
	s *faultyStore
}

func (t *faultyTx) Move(ctx context.Context, from, to stream.Principal, amount int64) error {
	if t.s.failMove {
		return errInjected
	}
	return t.Tx.Move(ctx, from, to, amount)
}

func (t *faultyTx) AppendEvent(ctx context.Context, ev stream.Event) (int64, error) {
	if t.s.failAppend {
		return 0, errInjected
	}
	return t.Tx.AppendEvent(ctx, ev)
}
