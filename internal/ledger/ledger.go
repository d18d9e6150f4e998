// Package ledger runs stream operations against a Store.
//
// Each mutating operation follows the same shape inside one Store.Update:
//
//  1. authorize the caller for the principal the operation needs
//  2. load the record (NOT_FOUND if unknown)
//  3. ask package stream for a plan (lifecycle check, accrual, settlement)
//  4. persist the next record, move funds, append a journal event
//
// Any error aborts the transaction, so an operation either applies all of
// its effects or none of them. Errors from package stream are returned as
// is; callers classify them with stream.CodeOf.
//
// Time is never read inside this package. Every operation takes a Call
// carrying the verified caller and the ledger time to evaluate at.
package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/streamvest/internal/auth"
	"github.com/roach88/streamvest/internal/stream"
)

// DefaultCustody is the account that holds deposits between creation and
// final disbursement.
const DefaultCustody stream.Principal = "streamvest:custody"

// Call carries the per-operation capabilities: who is calling and when.
type Call struct {
	Caller auth.Caller
	Now    uint64
}

// At is shorthand for Call{Caller: c, Now: now}.
func At(c auth.Caller, now uint64) Call {
	return Call{Caller: c, Now: now}
}

// Ledger is the stream registry and settlement service.
//
// Mutating operations are serialized: one runs to completion before the
// next begins.
type Ledger struct {
	mu      sync.Mutex
	store   Store
	custody stream.Principal
	ids     IDGenerator
	logger  *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithCustody overrides the custody account.
func WithCustody(p stream.Principal) Option {
	return func(l *Ledger) { l.custody = p }
}

// WithIDGenerator overrides the journal event ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(l *Ledger) { l.ids = g }
}

// WithLogger sets the structured logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New creates a Ledger over st.
func New(st Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:   st,
		custody: DefaultCustody,
		ids:     UUIDv7Generator{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Custody returns the account holding streamed funds.
func (l *Ledger) Custody() stream.Principal {
	return l.custody
}

// Configure writes the one-time configuration and starts the stream id
// counter at 0. The admin must authorize. A second call fails with
// ALREADY_CONFIGURED and changes nothing.
func (l *Ledger) Configure(ctx context.Context, call Call, cfg stream.Config) error {
	if cfg.Token == "" || cfg.Admin == "" {
		return stream.NewValidationError("token and admin are required")
	}
	if cfg.Admin == l.custody {
		return stream.NewValidationError("admin must not be the custody account")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.store.Update(ctx, func(tx Tx) error {
		if _, err := tx.Config(ctx); err == nil {
			return stream.NewAlreadyConfiguredError()
		} else if !stream.IsNotFound(err) {
			return err
		}
		if err := auth.Require(call.Caller, cfg.Admin); err != nil {
			return err
		}
		if err := tx.PutConfig(ctx, cfg); err != nil {
			return err
		}
		if err := tx.SetNextStreamID(ctx, 0); err != nil {
			return err
		}
		return l.record(ctx, tx, stream.Event{
			Kind:  stream.EventConfigured,
			Time:  call.Now,
			Actor: cfg.Admin,
		})
	})
	if err != nil {
		return err
	}

	l.logger.Info("ledger configured", "token", cfg.Token, "admin", cfg.Admin)
	return nil
}

// GetConfig returns the configuration, or NOT_FOUND before Configure.
func (l *Ledger) GetConfig(ctx context.Context) (stream.Config, error) {
	var cfg stream.Config
	err := l.store.View(ctx, func(tx Tx) error {
		var err error
		cfg, err = tx.Config(ctx)
		return err
	})
	return cfg, err
}

// CreateStream validates p, moves the deposit from the sender into
// custody and stores a new Active record under the next sequential id.
// The sender must authorize. On any failure no id is consumed and no
// funds move.
func (l *Ledger) CreateStream(ctx context.Context, call Call, p stream.Params) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var id uint64
	err := l.store.Update(ctx, func(tx Tx) error {
		if _, err := tx.Config(ctx); err != nil {
			return err
		}
		if err := auth.Require(call.Caller, p.Sender); err != nil {
			return err
		}
		if p.Sender == l.custody || p.Recipient == l.custody {
			return stream.NewValidationError("custody account cannot be a stream party")
		}

		next, err := tx.NextStreamID(ctx)
		if err != nil {
			return err
		}
		rec, err := stream.NewRecord(next, p)
		if err != nil {
			return err
		}

		if err := tx.Move(ctx, p.Sender, l.custody, p.DepositAmount); err != nil {
			return err
		}
		if err := tx.PutStream(ctx, rec); err != nil {
			return err
		}
		if err := tx.SetNextStreamID(ctx, next+1); err != nil {
			return err
		}

		id = next
		return l.record(ctx, tx, stream.Event{
			Kind:     stream.EventCreated,
			StreamID: &rec.ID,
			Time:     call.Now,
			Actor:    p.Sender,
			Amount:   p.DepositAmount,
		})
	})
	if err != nil {
		return 0, err
	}

	l.logger.Info("stream created",
		"stream_id", id,
		"sender", p.Sender,
		"recipient", p.Recipient,
		"deposit", p.DepositAmount,
		"rate", p.RatePerSecond,
	)
	return id, nil
}

// Withdraw moves everything accrued but not yet withdrawn to the
// recipient and returns the amount. The recipient must authorize.
// Paused streams are rejected; Cancelled streams pay out their residual.
func (l *Ledger) Withdraw(ctx context.Context, call Call, id uint64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var plan stream.WithdrawPlan
	err := l.store.Update(ctx, func(tx Tx) error {
		rec, err := l.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := auth.Require(call.Caller, rec.Recipient); err != nil {
			return err
		}

		plan, err = stream.PlanWithdraw(rec, call.Now)
		if err != nil {
			return err
		}

		if err := tx.PutStream(ctx, plan.Next); err != nil {
			return err
		}
		if err := tx.Move(ctx, l.custody, rec.Recipient, plan.Amount); err != nil {
			return err
		}
		return l.record(ctx, tx, stream.Event{
			Kind:     stream.EventWithdrawn,
			StreamID: &id,
			Time:     call.Now,
			Actor:    rec.Recipient,
			Amount:   plan.Amount,
		})
	})
	if err != nil {
		return 0, err
	}

	l.logger.Info("stream withdrawn",
		"stream_id", id,
		"amount", plan.Amount,
		"withdrawn", plan.Next.WithdrawnAmount,
		"status", plan.Next.Status,
	)
	return plan.Amount, nil
}

// PauseStream suspends withdrawals. Accrual is unaffected. The sender or
// the admin must authorize.
func (l *Ledger) PauseStream(ctx context.Context, call Call, id uint64) error {
	return l.flip(ctx, call, id, stream.EventPaused, stream.Paused)
}

// ResumeStream re-enables withdrawals on a Paused stream. The sender or
// the admin must authorize.
func (l *Ledger) ResumeStream(ctx context.Context, call Call, id uint64) error {
	return l.flip(ctx, call, id, stream.EventResumed, stream.Resumed)
}

func (l *Ledger) flip(ctx context.Context, call Call, id uint64, kind stream.EventKind, next func(stream.Record) (stream.Record, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var status stream.Status
	err := l.store.Update(ctx, func(tx Tx) error {
		rec, actor, err := l.loadControlled(ctx, tx, call, id)
		if err != nil {
			return err
		}
		updated, err := next(rec)
		if err != nil {
			return err
		}
		if err := tx.PutStream(ctx, updated); err != nil {
			return err
		}
		status = updated.Status
		return l.record(ctx, tx, stream.Event{
			Kind:     kind,
			StreamID: &id,
			Time:     call.Now,
			Actor:    actor,
		})
	})
	if err != nil {
		return err
	}

	l.logger.Info("stream "+string(kind), "stream_id", id, "status", status)
	return nil
}

// CancelStream ends a stream early. The unvested part of the deposit goes
// back to the sender; the vested but unwithdrawn part stays in custody for
// the recipient. No transfer is made when nothing is left to refund. The
// sender or the admin must authorize.
func (l *Ledger) CancelStream(ctx context.Context, call Call, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var plan stream.CancelPlan
	err := l.store.Update(ctx, func(tx Tx) error {
		rec, actor, err := l.loadControlled(ctx, tx, call, id)
		if err != nil {
			return err
		}

		plan, err = stream.PlanCancel(rec, call.Now)
		if err != nil {
			return err
		}

		if err := tx.PutStream(ctx, plan.Next); err != nil {
			return err
		}
		if plan.Refund > 0 {
			if err := tx.Move(ctx, l.custody, rec.Sender, plan.Refund); err != nil {
				return err
			}
		}
		return l.record(ctx, tx, stream.Event{
			Kind:     stream.EventCancelled,
			StreamID: &id,
			Time:     call.Now,
			Actor:    actor,
			Amount:   plan.Residual,
			Refund:   plan.Refund,
		})
	})
	if err != nil {
		return err
	}

	l.logger.Info("stream cancelled",
		"stream_id", id,
		"refund", plan.Refund,
		"residual", plan.Residual,
	)
	return nil
}

// GetStreamState returns the stored record, or NOT_FOUND.
func (l *Ledger) GetStreamState(ctx context.Context, id uint64) (stream.Record, error) {
	var rec stream.Record
	err := l.store.View(ctx, func(tx Tx) error {
		var err error
		rec, err = l.load(ctx, tx, id)
		return err
	})
	return rec, err
}

// CalculateAccrued returns the vested amount of stream id at now.
func (l *Ledger) CalculateAccrued(ctx context.Context, id uint64, now uint64) (int64, error) {
	rec, err := l.GetStreamState(ctx, id)
	if err != nil {
		return 0, err
	}
	return stream.Accrued(rec, now)
}

// ListStreams returns records ordered by id. A non-empty participant
// restricts the list to streams it sends or receives.
func (l *Ledger) ListStreams(ctx context.Context, participant stream.Principal) ([]stream.Record, error) {
	var recs []stream.Record
	err := l.store.View(ctx, func(tx Tx) error {
		if _, err := tx.Config(ctx); err != nil {
			return err
		}
		var err error
		recs, err = tx.Streams(ctx, participant)
		return err
	})
	return recs, err
}

// Events returns journal entries in seq order.
func (l *Ledger) Events(ctx context.Context, filter stream.EventFilter) ([]stream.Event, error) {
	var evs []stream.Event
	err := l.store.View(ctx, func(tx Tx) error {
		var err error
		evs, err = tx.Events(ctx, filter)
		return err
	})
	return evs, err
}

// load fetches a record after confirming the ledger is configured.
func (l *Ledger) load(ctx context.Context, tx Tx, id uint64) (stream.Record, error) {
	if _, err := tx.Config(ctx); err != nil {
		return stream.Record{}, err
	}
	return tx.Stream(ctx, id)
}

// loadControlled fetches a record and authorizes the caller as its sender
// or as the admin, returning whichever principal matched.
func (l *Ledger) loadControlled(ctx context.Context, tx Tx, call Call, id uint64) (stream.Record, stream.Principal, error) {
	cfg, err := tx.Config(ctx)
	if err != nil {
		return stream.Record{}, "", err
	}
	rec, err := tx.Stream(ctx, id)
	if err != nil {
		return stream.Record{}, "", err
	}
	actor, err := auth.RequireAny(call.Caller, rec.Sender, cfg.Admin)
	if err != nil {
		return stream.Record{}, "", err
	}
	return rec, actor, nil
}

func (l *Ledger) record(ctx context.Context, tx Tx, ev stream.Event) error {
	ev.ID = l.ids.Generate()
	if _, err := tx.AppendEvent(ctx, ev); err != nil {
		return fmt.Errorf("journal %s: %w", ev.Kind, err)
	}
	return nil
}
