package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/streamvest/internal/auth"
	"github.com/roach88/streamvest/internal/genesis"
	"github.com/roach88/streamvest/internal/ledger"
	"github.com/roach88/streamvest/internal/store"
	"github.com/roach88/streamvest/internal/stream"
	"github.com/roach88/streamvest/internal/testutil"
)

// errCodeInternal marks a step error that carries no ledger error code.
const errCodeInternal = "INTERNAL"

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and journal IDs.
type Harness struct {
	store  *store.Store
	ledger *ledger.Ledger
	clock  *testutil.ManualClock
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Apply the genesis block or file, if any, at time 0
// 3. Execute steps, checking each expect clause and conservation
// 4. Evaluate assertions against the trace and final state
//
// An error is returned only when the scenario cannot be executed at all
// (store or genesis failure); step and assertion failures are reported
// through Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store: st,
		ledger: ledger.New(st,
			ledger.WithIDGenerator(testutil.NewSequentialIDs("ev")),
			ledger.WithLogger(logger),
		),
		clock:  testutil.NewManualClock(0),
		logger: logger,
	}

	ctx := context.Background()

	if err := h.applyGenesis(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to apply genesis: %w", err)
	}

	result := NewResult()
	h.executeSteps(ctx, scenario.Steps, result)

	actx := &AssertionContext{
		Store:  st,
		Ledger: h.ledger,
		Ctx:    ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	if err := h.snapshot(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}

	return result, nil
}

func (h *Harness) applyGenesis(ctx context.Context, scenario *Scenario) error {
	var g *genesis.Genesis
	switch {
	case scenario.GenesisFile != "":
		loaded, err := genesis.Load(scenario.GenesisFile)
		if err != nil {
			return err
		}
		g = loaded
	case scenario.Genesis != nil:
		built, err := scenario.Genesis.build()
		if err != nil {
			return err
		}
		g = built
	default:
		return nil
	}
	return genesis.Apply(ctx, h.ledger, h.store, g, h.clock.Now())
}

// build converts an inline genesis block, validating each principal the
// way the CUE loader does.
func (s *GenesisSpec) build() (*genesis.Genesis, error) {
	token, err := stream.ParsePrincipal(s.Token)
	if err != nil {
		return nil, fmt.Errorf("genesis token: %w", err)
	}
	admin, err := stream.ParsePrincipal(s.Admin)
	if err != nil {
		return nil, fmt.Errorf("genesis admin: %w", err)
	}
	g := &genesis.Genesis{Token: token, Admin: admin}
	for i, m := range s.Mints {
		account, err := stream.ParsePrincipal(m.Account)
		if err != nil {
			return nil, fmt.Errorf("genesis mints[%d]: %w", i, err)
		}
		g.Mints = append(g.Mints, genesis.Mint{Account: account, Amount: m.Amount})
	}
	return g, nil
}

// executeSteps runs every step in order. A step that misses its expect
// clause is recorded as an error and execution continues, so a single
// run reports every divergence.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	for i, step := range steps {
		if step.At != nil {
			h.clock.Set(*step.At)
		}

		ev := TraceEvent{
			Step: i + 1,
			At:   h.clock.Now(),
			Op:   step.Op,
			As:   step.As,
		}

		err := h.dispatch(ctx, step, &ev)
		if err != nil {
			ev.Error = errorCode(err)
		}
		result.AddTrace(ev)

		for _, msg := range checkExpect(step.Expect, ev, err) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", ev.Step, step.Op, msg))
		}

		if msg := h.checkConserved(ctx); msg != "" {
			result.AddError(fmt.Sprintf("step %d (%s): %s", ev.Step, step.Op, msg))
		}

		h.logger.Info("step completed",
			"step", ev.Step,
			"op", step.Op,
			"at", ev.At,
			"error", ev.Error,
		)
	}
}

// dispatch runs one step against the ledger, filling the trace event's
// result fields on success.
func (h *Harness) dispatch(ctx context.Context, step Step, ev *TraceEvent) error {
	call := ledger.At(caller(step.As), ev.At)
	args := step.Args

	switch step.Op {
	case OpWithdraw, OpPause, OpResume, OpCancel, OpAccrued:
		if args.StreamID == nil {
			return stream.NewValidationError(step.Op + " requires stream_id")
		}
	}

	switch step.Op {
	case OpConfigure:
		return h.ledger.Configure(ctx, call, stream.Config{
			Token: stream.Principal(args.Token),
			Admin: stream.Principal(args.Admin),
		})

	case OpMint:
		return h.store.Mint(ctx, stream.Principal(args.Account), args.Amount)

	case OpCreate:
		id, err := h.ledger.CreateStream(ctx, call, stream.Params{
			Sender:        stream.Principal(args.Sender),
			Recipient:     stream.Principal(args.Recipient),
			DepositAmount: args.Deposit,
			RatePerSecond: args.Rate,
			StartTime:     args.Start,
			CliffTime:     args.Cliff,
			EndTime:       args.End,
		})
		if err == nil {
			ev.StreamID = &id
		}
		return err

	case OpWithdraw:
		ev.StreamID = args.StreamID
		amount, err := h.ledger.Withdraw(ctx, call, *args.StreamID)
		if err == nil {
			ev.Amount = &amount
		}
		return err

	case OpPause:
		ev.StreamID = args.StreamID
		return h.ledger.PauseStream(ctx, call, *args.StreamID)

	case OpResume:
		ev.StreamID = args.StreamID
		return h.ledger.ResumeStream(ctx, call, *args.StreamID)

	case OpCancel:
		ev.StreamID = args.StreamID
		return h.ledger.CancelStream(ctx, call, *args.StreamID)

	case OpAccrued:
		ev.StreamID = args.StreamID
		amount, err := h.ledger.CalculateAccrued(ctx, *args.StreamID, ev.At)
		if err == nil {
			ev.Amount = &amount
		}
		return err

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

// caller returns the Caller a step runs as. A step without principals
// proves nothing.
func caller(as []string) auth.Caller {
	if len(as) == 0 {
		return auth.Nobody()
	}
	ps := make([]stream.Principal, len(as))
	for i, p := range as {
		ps[i] = stream.Principal(p)
	}
	return auth.As(ps...)
}

func errorCode(err error) string {
	if code := stream.CodeOf(err); code != "" {
		return string(code)
	}
	return errCodeInternal
}

// checkExpect compares a step outcome with its expect clause. A nil
// clause requires success.
func checkExpect(want *Expect, got TraceEvent, err error) []string {
	if want == nil || want.Error == "" {
		if err != nil {
			return []string{fmt.Sprintf("expected success, got %v", err)}
		}
	}
	if want == nil {
		return nil
	}

	var msgs []string
	if want.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("expected error %s, got success", want.Error)}
		}
		if got.Error != want.Error {
			msgs = append(msgs, fmt.Sprintf("expected error %s, got %v", want.Error, err))
		}
		if want.Message != "" && !strings.Contains(err.Error(), want.Message) {
			msgs = append(msgs, fmt.Sprintf("expected error message containing %q, got %q", want.Message, err.Error()))
		}
		return msgs
	}

	if want.StreamID != nil {
		if got.StreamID == nil || *got.StreamID != *want.StreamID {
			msgs = append(msgs, fmt.Sprintf("expected stream_id %d, got %s", *want.StreamID, formatUint(got.StreamID)))
		}
	}
	if want.Amount != nil {
		if got.Amount == nil || *got.Amount != *want.Amount {
			msgs = append(msgs, fmt.Sprintf("expected amount %d, got %s", *want.Amount, formatInt(got.Amount)))
		}
	}
	return msgs
}

// checkConserved returns a description of the first conservation
// violation, or "" when the ledger balances.
func (h *Harness) checkConserved(ctx context.Context) string {
	total, err := h.store.TotalSupply(ctx)
	if err != nil {
		return fmt.Sprintf("conservation: %v", err)
	}
	bals, err := h.store.Balances(ctx)
	if err != nil {
		return fmt.Sprintf("conservation: %v", err)
	}
	var sum int64
	for _, b := range bals {
		sum += b.Amount
	}
	if sum != total {
		return fmt.Sprintf("conservation: balances sum to %d, total minted is %d", sum, total)
	}

	recs, err := h.ledger.ListStreams(ctx, "")
	if stream.HasCode(err, stream.ErrCodeNotFound) {
		return "" // not configured yet
	}
	if err != nil {
		return fmt.Sprintf("conservation: %v", err)
	}
	var held int64
	for _, r := range recs {
		v, err := stream.Held(r)
		if err != nil {
			return fmt.Sprintf("conservation: stream %d: %v", r.ID, err)
		}
		held += v
	}
	custody, err := h.store.Balance(ctx, h.ledger.Custody())
	if err != nil {
		return fmt.Sprintf("conservation: %v", err)
	}
	if custody != held {
		return fmt.Sprintf("conservation: custody holds %d, streams hold %d", custody, held)
	}
	return ""
}

// snapshot copies the final streams and balances into the result.
func (h *Harness) snapshot(ctx context.Context, result *Result) error {
	bals, err := h.store.Balances(ctx)
	if err != nil {
		return err
	}
	if bals != nil {
		result.Balances = bals
	}

	recs, err := h.ledger.ListStreams(ctx, "")
	if stream.HasCode(err, stream.ErrCodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if recs != nil {
		result.Streams = recs
	}
	return nil
}

func formatUint(v *uint64) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *v)
}

func formatInt(v *int64) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *v)
}
