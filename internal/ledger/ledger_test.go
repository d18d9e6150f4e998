package ledger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/streamvest/internal/auth"
	"github.com/roach88/streamvest/internal/ledger"
	"github.com/roach88/streamvest/internal/stream"
	"github.com/roach88/streamvest/internal/testutil"
)

// Configuration

func TestConfigure(t *testing.T) {
	f := newUnconfigured(t)

	_, err := f.ledger.GetConfig(f.ctx)
	assert.True(t, stream.IsNotFound(err))

	require.NoError(t, f.ledger.Configure(f.ctx, f.call(admin), stream.Config{Token: "USDC", Admin: admin}))

	cfg, err := f.ledger.GetConfig(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, stream.Config{Token: "USDC", Admin: admin}, cfg)
}

func TestConfigure_SecondAttemptChangesNothing(t *testing.T) {
	f := newFixture(t)

	id := f.create(params(1000, 1, 0, 0, 1000))
	require.Equal(t, uint64(0), id)

	err := f.ledger.Configure(f.ctx, f.call(outsider), stream.Config{Token: "DAI", Admin: outsider})
	assert.Equal(t, stream.ErrCodeAlreadyConfigured, stream.CodeOf(err))

	err = f.ledger.Configure(f.ctx, f.call(admin), stream.Config{Token: "USDC", Admin: admin})
	assert.Equal(t, stream.ErrCodeAlreadyConfigured, stream.CodeOf(err))

	cfg, err := f.ledger.GetConfig(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, stream.Config{Token: "USDC", Admin: admin}, cfg)

	// Counter untouched: the next stream still gets id 1
	assert.Equal(t, uint64(1), f.create(params(1000, 1, 0, 0, 1000)))
}

func TestConfigure_RequiresAdmin(t *testing.T) {
	f := newUnconfigured(t)

	err := f.ledger.Configure(f.ctx, f.call(outsider), stream.Config{Token: "USDC", Admin: admin})
	assert.True(t, stream.IsUnauthorized(err))

	_, err = f.ledger.GetConfig(f.ctx)
	assert.True(t, stream.IsNotFound(err), "failed configure must not write config")
}

func TestConfigure_Validation(t *testing.T) {
	f := newUnconfigured(t)

	tests := []struct {
		name string
		cfg  stream.Config
	}{
		{"empty token", stream.Config{Admin: admin}},
		{"empty admin", stream.Config{Token: "USDC"}},
		{"custody admin", stream.Config{Token: "USDC", Admin: ledger.DefaultCustody}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.ledger.Configure(f.ctx, ledger.At(auth.Anyone(), 0), tt.cfg)
			assert.True(t, stream.IsValidation(err))
		})
	}
}

func TestUnconfigured_OperationsFail(t *testing.T) {
	f := newUnconfigured(t)
	require.NoError(t, f.store.Mint(f.ctx, sender, 1000))

	_, err := f.ledger.CreateStream(f.ctx, f.call(sender), params(1000, 1, 0, 0, 1000))
	assert.True(t, stream.IsNotFound(err))

	_, err = f.ledger.Withdraw(f.ctx, f.call(recipient), 0)
	assert.True(t, stream.IsNotFound(err))

	_, err = f.ledger.ListStreams(f.ctx, "")
	assert.True(t, stream.IsNotFound(err))

	assert.Equal(t, int64(1000), f.balance(sender))
}

// Creation

func TestCreateStream(t *testing.T) {
	f := newFixture(t)

	id := f.create(params(1000, 1, 0, 0, 1000))
	assert.Equal(t, uint64(0), id)

	rec := f.state(id)
	assert.Equal(t, stream.StatusActive, rec.Status)
	assert.Equal(t, int64(0), rec.WithdrawnAmount)
	assert.Equal(t, params(1000, 1, 0, 0, 1000), rec.Params())

	assert.Equal(t, int64(99_000), f.balance(sender))
	assert.Equal(t, int64(1000), f.balance(f.ledger.Custody()))
	f.requireConserved()
}

func TestCreateStream_IDsSequential(t *testing.T) {
	f := newFixture(t)

	for want := uint64(0); want < 5; want++ {
		assert.Equal(t, want, f.create(params(100, 1, 0, 0, 100)))
	}
}

func TestCreateStream_FailuresConsumeNoID(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Mint(f.ctx, "pauper", 10))

	poor := params(1000, 1, 0, 0, 1000)
	poor.Sender = "pauper"

	failures := []struct {
		name string
		call ledger.Call
		p    stream.Params
		code stream.ErrorCode
	}{
		{"underfunded", f.call(sender), params(999, 1, 0, 0, 1000), stream.ErrCodeValidation},
		{"overfunded", f.call(sender), params(1001, 1, 0, 0, 1000), stream.ErrCodeValidation},
		{"cliff before start", f.call(sender), params(1000, 1, 10, 5, 1010), stream.ErrCodeValidation},
		{"same parties", f.call(sender), stream.Params{Sender: sender, Recipient: sender, DepositAmount: 10, RatePerSecond: 1, EndTime: 10}, stream.ErrCodeValidation},
		{"wrong caller", f.call(recipient), params(1000, 1, 0, 0, 1000), stream.ErrCodeUnauthorized},
		{"insufficient balance", f.call("pauper"), poor, stream.ErrCodeInsufficientBalance},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CreateStream(f.ctx, tt.call, tt.p)
			assert.Equal(t, tt.code, stream.CodeOf(err))
		})
	}

	assert.Equal(t, uint64(0), f.create(params(1000, 1, 0, 0, 1000)))
	assert.Equal(t, int64(10), f.balance("pauper"))
	f.requireConserved()
}

func TestCreateStream_CustodyCannotBeParty(t *testing.T) {
	f := newFixture(t)

	p := params(1000, 1, 0, 0, 1000)
	p.Recipient = f.ledger.Custody()

	_, err := f.ledger.CreateStream(f.ctx, f.call(sender), p)
	assert.True(t, stream.IsValidation(err))
}

// Concrete scenarios

func TestScenario_WithdrawToCompletion(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(1000, 1, 0, 0, 1000))

	got, err := f.ledger.Withdraw(f.ctx, f.at(250, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got)

	got, err = f.ledger.Withdraw(f.ctx, f.at(400, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(150), got)

	got, err = f.ledger.Withdraw(f.ctx, f.at(1000, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(600), got)

	rec := f.state(id)
	assert.Equal(t, stream.StatusCompleted, rec.Status)
	assert.Equal(t, int64(1000), rec.WithdrawnAmount)
	assert.Equal(t, int64(1000), f.balance(recipient))
	assert.Equal(t, int64(0), f.balance(f.ledger.Custody()))
	f.requireConserved()

	_, err = f.ledger.Withdraw(f.ctx, f.at(1200, recipient), id)
	assert.True(t, stream.IsIllegalState(err))
}

func TestScenario_WithdrawPastEndCapped(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(2000, 2, 0, 0, 1000))

	got, err := f.ledger.Withdraw(f.ctx, f.at(5000, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got)
	assert.Equal(t, stream.StatusCompleted, f.state(id).Status)
	f.requireConserved()
}

func TestScenario_CancelAtStartRefundsAll(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(3000, 1, 1000, 1000, 4000))

	require.NoError(t, f.ledger.CancelStream(f.ctx, f.at(1000, sender), id))

	rec := f.state(id)
	assert.Equal(t, stream.StatusCancelled, rec.Status)
	assert.Equal(t, int64(100_000), f.balance(sender))
	assert.Equal(t, int64(0), f.balance(recipient))
	assert.Equal(t, int64(0), f.balance(f.ledger.Custody()))
	f.requireConserved()

	_, err := f.ledger.Withdraw(f.ctx, f.at(5000, recipient), id)
	assert.Equal(t, stream.ErrCodeNothingToWithdraw, stream.CodeOf(err))
}

func TestScenario_CancelAfterPartialWithdraw(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(4000, 1, 0, 0, 4000))

	got, err := f.ledger.Withdraw(f.ctx, f.at(1000, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got)

	require.NoError(t, f.ledger.CancelStream(f.ctx, f.at(2400, sender), id))
	assert.Equal(t, int64(100_000-4000+1600), f.balance(sender))
	assert.Equal(t, int64(1400), f.balance(f.ledger.Custody()))
	f.requireConserved()

	// Accrual is frozen at cancellation: waiting does not grow the residual
	accrued, err := f.ledger.CalculateAccrued(f.ctx, id, 3900)
	require.NoError(t, err)
	assert.Equal(t, int64(2400), accrued)

	got, err = f.ledger.Withdraw(f.ctx, f.at(3900, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1400), got)
	assert.Equal(t, int64(2400), f.balance(recipient))
	assert.Equal(t, stream.StatusCancelled, f.state(id).Status)
	f.requireConserved()

	_, err = f.ledger.Withdraw(f.ctx, f.at(4000, recipient), id)
	assert.Equal(t, stream.ErrCodeNothingToWithdraw, stream.CodeOf(err))
}

// Withdraw rules

func TestWithdraw_BeforeCliff(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(4000, 1, 0, 1000, 4000))

	_, err := f.ledger.Withdraw(f.ctx, f.at(999, recipient), id)
	assert.Equal(t, stream.ErrCodeNothingToWithdraw, stream.CodeOf(err))

	got, err := f.ledger.Withdraw(f.ctx, f.at(1000, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got)
}

func TestWithdraw_OnlyRecipient(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(1000, 1, 0, 0, 1000))

	for _, p := range []stream.Principal{sender, admin, outsider} {
		_, err := f.ledger.Withdraw(f.ctx, f.at(500, p), id)
		assert.True(t, stream.IsUnauthorized(err), "caller %s", p)
	}
	assert.Equal(t, int64(0), f.state(id).WithdrawnAmount)
}

func TestWithdraw_UnknownStream(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Withdraw(f.ctx, f.at(10, recipient), 7)
	assert.True(t, stream.IsNotFound(err))
}

func TestWithdraw_PausedRejectedWhateverAccrued(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(1000, 1, 0, 0, 1000))

	require.NoError(t, f.ledger.PauseStream(f.ctx, f.at(100, sender), id))

	_, err := f.ledger.Withdraw(f.ctx, f.at(600, recipient), id)
	require.Error(t, err)
	assert.True(t, stream.IsIllegalState(err))
	assert.Contains(t, err.Error(), "cannot withdraw from paused stream")

	// Accrual kept running while paused
	accrued, err := f.ledger.CalculateAccrued(f.ctx, id, 600)
	require.NoError(t, err)
	assert.Equal(t, int64(600), accrued)

	require.NoError(t, f.ledger.ResumeStream(f.ctx, f.at(700, sender), id))
	got, err := f.ledger.Withdraw(f.ctx, f.at(700, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(700), got)
	f.requireConserved()
}

// Pause, resume, cancel

func TestPauseResume_Authorization(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(1000, 1, 0, 0, 1000))

	err := f.ledger.PauseStream(f.ctx, f.at(10, recipient), id)
	assert.True(t, stream.IsUnauthorized(err))
	err = f.ledger.PauseStream(f.ctx, f.at(10, outsider), id)
	assert.True(t, stream.IsUnauthorized(err))
	assert.Equal(t, stream.StatusActive, f.state(id).Status)

	require.NoError(t, f.ledger.PauseStream(f.ctx, f.at(10, admin), id))
	assert.Equal(t, stream.StatusPaused, f.state(id).Status)

	err = f.ledger.ResumeStream(f.ctx, f.at(20, recipient), id)
	assert.True(t, stream.IsUnauthorized(err))

	require.NoError(t, f.ledger.ResumeStream(f.ctx, f.at(20, sender), id))
	assert.Equal(t, stream.StatusActive, f.state(id).Status)
}

func TestPauseResume_IllegalTransitions(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(1000, 1, 0, 0, 1000))

	err := f.ledger.ResumeStream(f.ctx, f.at(10, sender), id)
	assert.True(t, stream.IsIllegalState(err), "resume active")

	require.NoError(t, f.ledger.PauseStream(f.ctx, f.at(10, sender), id))
	err = f.ledger.PauseStream(f.ctx, f.at(11, sender), id)
	assert.True(t, stream.IsIllegalState(err), "pause paused")

	require.NoError(t, f.ledger.CancelStream(f.ctx, f.at(12, sender), id))
	for _, op := range []func() error{
		func() error { return f.ledger.PauseStream(f.ctx, f.at(13, sender), id) },
		func() error { return f.ledger.ResumeStream(f.ctx, f.at(13, sender), id) },
		func() error { return f.ledger.CancelStream(f.ctx, f.at(13, sender), id) },
	} {
		assert.True(t, stream.IsIllegalState(op()))
	}
}

func TestCancel_CompletedStream(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(100, 1, 0, 0, 100))

	_, err := f.ledger.Withdraw(f.ctx, f.at(100, recipient), id)
	require.NoError(t, err)

	err = f.ledger.CancelStream(f.ctx, f.at(101, sender), id)
	assert.True(t, stream.IsIllegalState(err))
}

func TestCancel_PausedStreamByAdmin(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(1000, 1, 0, 0, 1000))

	require.NoError(t, f.ledger.PauseStream(f.ctx, f.at(100, sender), id))
	require.NoError(t, f.ledger.CancelStream(f.ctx, f.at(300, admin), id))

	assert.Equal(t, int64(300), f.balance(f.ledger.Custody()))
	assert.Equal(t, int64(100_000-300), f.balance(sender))

	// The residual is withdrawable after cancellation even though the
	// stream was paused when it ended.
	got, err := f.ledger.Withdraw(f.ctx, f.at(400, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got)
	f.requireConserved()
}

func TestCancel_AfterEndRefundsNothing(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(1000, 1, 0, 0, 1000))

	before := f.balance(sender)
	require.NoError(t, f.ledger.CancelStream(f.ctx, f.at(2000, sender), id))
	assert.Equal(t, before, f.balance(sender))
	assert.Equal(t, int64(1000), f.balance(f.ledger.Custody()))
	f.requireConserved()

	// The whole deposit is residual and stays withdrawable.
	got, err := f.ledger.Withdraw(f.ctx, f.at(2500, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got)
	assert.Equal(t, int64(1000), f.balance(recipient))
	assert.Zero(t, f.balance(f.ledger.Custody()))

	rec := f.state(id)
	assert.Equal(t, stream.StatusCancelled, rec.Status)
	assert.Equal(t, int64(1000), rec.WithdrawnAmount)
	f.requireConserved()

	_, err = f.ledger.Withdraw(f.ctx, f.at(3000, recipient), id)
	assert.Equal(t, stream.ErrCodeNothingToWithdraw, stream.CodeOf(err))
}

func TestCancel_PausedThenWithdrawFrozenResidual(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(3000, 3, 0, 0, 1000))

	require.NoError(t, f.ledger.PauseStream(f.ctx, f.at(300, sender), id))
	before := f.balance(sender)
	require.NoError(t, f.ledger.CancelStream(f.ctx, f.at(600, sender), id))
	assert.Equal(t, before+1200, f.balance(sender))

	got, err := f.ledger.Withdraw(f.ctx, f.at(5000, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), got)
	assert.Equal(t, stream.StatusCancelled, f.state(id).Status)
	f.requireConserved()
}

func TestPauseResume_MultipleCycles(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(1000, 1, 0, 0, 1000))

	for _, t0 := range []uint64{100, 300, 500} {
		require.NoError(t, f.ledger.PauseStream(f.ctx, f.at(t0, sender), id))
		assert.Equal(t, stream.StatusPaused, f.state(id).Status)

		_, err := f.ledger.Withdraw(f.ctx, f.at(t0+50, recipient), id)
		assert.True(t, stream.IsIllegalState(err), "withdraw while paused at %d", t0+50)

		require.NoError(t, f.ledger.ResumeStream(f.ctx, f.at(t0+100, sender), id))
		assert.Equal(t, stream.StatusActive, f.state(id).Status)
		f.requireConserved()
	}

	// Pausing never stopped accrual.
	got, err := f.ledger.Withdraw(f.ctx, f.at(1000, recipient), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got)
	assert.Equal(t, stream.StatusCompleted, f.state(id).Status)
	assert.Zero(t, f.balance(f.ledger.Custody()))
	f.requireConserved()
}

// Atomicity

func TestAtomicity_CreateTransferFailure(t *testing.T) {
	s := openStore(t)
	fs := &faultyStore{Store: s}
	l := ledger.New(fs)
	ctx := t.Context()

	require.NoError(t, l.Configure(ctx, ledger.At(auth.As(admin), 0), stream.Config{Token: "USDC", Admin: admin}))
	require.NoError(t, s.Mint(ctx, sender, 5000))

	fs.failMove = true
	_, err := l.CreateStream(ctx, ledger.At(auth.As(sender), 0), params(1000, 1, 0, 0, 1000))
	require.ErrorIs(t, err, errInjected)

	fs.failMove = false
	recs, err := l.ListStreams(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, recs)

	id, err := l.CreateStream(ctx, ledger.At(auth.As(sender), 0), params(1000, 1, 0, 0, 1000))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id, "failed create must not consume an id")
}

func TestAtomicity_WithdrawJournalFailure(t *testing.T) {
	s := openStore(t)
	fs := &faultyStore{Store: s}
	l := ledger.New(fs)
	ctx := t.Context()

	require.NoError(t, l.Configure(ctx, ledger.At(auth.As(admin), 0), stream.Config{Token: "USDC", Admin: admin}))
	require.NoError(t, s.Mint(ctx, sender, 5000))
	id, err := l.CreateStream(ctx, ledger.At(auth.As(sender), 0), params(1000, 1, 0, 0, 1000))
	require.NoError(t, err)

	// Record and balance writes happen before the journal append
	fs.failAppend = true
	_, err = l.Withdraw(ctx, ledger.At(auth.As(recipient), 500), id)
	require.ErrorIs(t, err, errInjected)

	rec, err := l.GetStreamState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.WithdrawnAmount)

	bal, err := s.Balance(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)
}

func TestAtomicity_CancelRefundFailure(t *testing.T) {
	s := openStore(t)
	fs := &faultyStore{Store: s}
	l := ledger.New(fs)
	ctx := t.Context()

	require.NoError(t, l.Configure(ctx, ledger.At(auth.As(admin), 0), stream.Config{Token: "USDC", Admin: admin}))
	require.NoError(t, s.Mint(ctx, sender, 5000))
	id, err := l.CreateStream(ctx, ledger.At(auth.As(sender), 0), params(1000, 1, 0, 0, 1000))
	require.NoError(t, err)

	fs.failMove = true
	err = l.CancelStream(ctx, ledger.At(auth.As(sender), 400), id)
	require.ErrorIs(t, err, errInjected)

	rec, err := l.GetStreamState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, stream.StatusActive, rec.Status)
	assert.Equal(t, uint64(0), rec.CancelledAt)
}

// Reads and journal

func TestReads_UnknownStream(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.GetStreamState(f.ctx, 99)
	assert.True(t, stream.IsNotFound(err))

	_, err = f.ledger.CalculateAccrued(f.ctx, 99, 10)
	assert.True(t, stream.IsNotFound(err))
}

func TestCalculateAccrued_ReadOnly(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(1000, 1, 0, 0, 1000))

	for _, now := range []uint64{0, 500, 1000, 5000} {
		_, err := f.ledger.CalculateAccrued(f.ctx, id, now)
		require.NoError(t, err)
	}

	assert.Equal(t, stream.Record{
		ID:            id,
		Sender:        sender,
		Recipient:     recipient,
		DepositAmount: 1000,
		RatePerSecond: 1,
		EndTime:       1000,
		Status:        stream.StatusActive,
	}, f.state(id))
}

func TestListStreams(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Mint(f.ctx, "other", 1000))

	a := f.create(params(100, 1, 0, 0, 100))
	p := params(100, 1, 0, 0, 100)
	p.Sender = "other"
	b := f.create(p)

	all, err := f.ledger.ListStreams(f.ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a, all[0].ID)
	assert.Equal(t, b, all[1].ID)

	mine, err := f.ledger.ListStreams(f.ctx, sender)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a, mine[0].ID)

	theirs, err := f.ledger.ListStreams(f.ctx, recipient)
	require.NoError(t, err)
	assert.Len(t, theirs, 2)
}

func TestEvents_Journal(t *testing.T) {
	f := newFixture(t)
	id := f.create(params(4000, 1, 0, 0, 4000))

	_, err := f.ledger.Withdraw(f.ctx, f.at(1000, recipient), id)
	require.NoError(t, err)
	require.NoError(t, f.ledger.PauseStream(f.ctx, f.at(1500, admin), id))
	require.NoError(t, f.ledger.ResumeStream(f.ctx, f.at(1600, sender), id))
	require.NoError(t, f.ledger.CancelStream(f.ctx, f.at(2400, sender), id))

	// A rejected operation leaves no journal entry
	_, err = f.ledger.Withdraw(f.ctx, f.at(2500, outsider), id)
	require.Error(t, err)

	evs, err := f.ledger.Events(f.ctx, stream.EventFilter{})
	require.NoError(t, err)
	require.Len(t, evs, 6)

	kinds := make([]stream.EventKind, len(evs))
	for i, ev := range evs {
		kinds[i] = ev.Kind
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.Equal(t, []stream.EventKind{
		stream.EventConfigured,
		stream.EventCreated,
		stream.EventWithdrawn,
		stream.EventPaused,
		stream.EventResumed,
		stream.EventCancelled,
	}, kinds)

	assert.Equal(t, "ev-1", evs[0].ID)
	assert.Nil(t, evs[0].StreamID)
	assert.Equal(t, admin, evs[3].Actor)

	cancelled := evs[5]
	require.NotNil(t, cancelled.StreamID)
	assert.Equal(t, id, *cancelled.StreamID)
	assert.Equal(t, uint64(2400), cancelled.Time)
	assert.Equal(t, int64(1400), cancelled.Amount)
	assert.Equal(t, int64(1600), cancelled.Refund)

	forStream, err := f.ledger.Events(f.ctx, stream.EventFilter{StreamID: &id})
	require.NoError(t, err)
	assert.Len(t, forStream, 5)
}

func TestLedger_DefaultIDsAreUUIDv7(t *testing.T) {
	s := openStore(t)
	l := ledger.New(s)
	ctx := t.Context()

	require.NoError(t, l.Configure(ctx, ledger.At(auth.As(admin), 0), stream.Config{Token: "USDC", Admin: admin}))

	evs, err := l.Events(ctx, stream.EventFilter{})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Len(t, evs[0].ID, 36)
	assert.Equal(t, byte('7'), evs[0].ID[14], "UUID version nibble")
}

func TestLedger_ErrorsClassifyThroughWrapping(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Withdraw(f.ctx, f.at(1, recipient), 3)
	wrapped := errors.Join(errors.New("cli"), err)
	assert.True(t, stream.IsNotFound(wrapped))
}

func TestWithCustody(t *testing.T) {
	s := openStore(t)
	l := ledger.New(s,
		ledger.WithCustody("vault"),
		ledger.WithIDGenerator(testutil.NewSequentialIDs("")),
	)
	ctx := t.Context()

	require.NoError(t, l.Configure(ctx, ledger.At(auth.As(admin), 0), stream.Config{Token: "USDC", Admin: admin}))
	require.NoError(t, s.Mint(ctx, sender, 500))
	_, err := l.CreateStream(ctx, ledger.At(auth.As(sender), 0), params(500, 1, 0, 0, 500))
	require.NoError(t, err)

	vault, err := s.Balance(ctx, "vault")
	require.NoError(t, err)
	assert.Equal(t, int64(500), vault)
	assert.Equal(t, stream.Principal("vault"), l.Custody())
}
