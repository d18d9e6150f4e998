package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/streamvest/internal/ledger"
	"github.com/roach88/streamvest/internal/stream"
)

const (
	counterNextStreamID = "next_stream_id"
	counterTotalMinted  = "total_minted"
)

// Tx implements ledger.Tx over one SQLite transaction.
type Tx struct {
	tx *sql.Tx
}

var _ ledger.Tx = (*Tx)(nil)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Config returns the stored configuration.
func (t *Tx) Config(ctx context.Context) (stream.Config, error) {
	var token, admin string
	err := t.tx.QueryRowContext(ctx, "SELECT token, admin FROM config WHERE id = 1").Scan(&token, &admin)
	if errors.Is(err, sql.ErrNoRows) {
		return stream.Config{}, stream.NewNotConfiguredError()
	}
	if err != nil {
		return stream.Config{}, fmt.Errorf("query config: %w", err)
	}
	return stream.Config{Token: stream.Principal(token), Admin: stream.Principal(admin)}, nil
}

// PutConfig writes the configuration. The schema rejects a second write.
func (t *Tx) PutConfig(ctx context.Context, cfg stream.Config) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO config (id, token, admin) VALUES (1, ?, ?)",
		string(cfg.Token), string(cfg.Admin),
	)
	if err != nil {
		return fmt.Errorf("insert config: %w", err)
	}
	return nil
}

// NextStreamID returns the stream id counter.
func (t *Tx) NextStreamID(ctx context.Context) (uint64, error) {
	v, ok, err := t.counter(ctx, counterNextStreamID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, stream.NewNotConfiguredError()
	}
	return uint64(v), nil
}

// SetNextStreamID stores the stream id counter.
func (t *Tx) SetNextStreamID(ctx context.Context, id uint64) error {
	return t.setCounter(ctx, counterNextStreamID, int64(id))
}

// Stream returns the record stored under id.
func (t *Tx) Stream(ctx context.Context, id uint64) (stream.Record, error) {
	row := t.tx.QueryRowContext(ctx, selectStream+" WHERE id = ?", int64(id))
	rec, err := scanStream(row)
	if errors.Is(err, sql.ErrNoRows) {
		return stream.Record{}, stream.NewNotFoundError(id)
	}
	if err != nil {
		return stream.Record{}, fmt.Errorf("query stream %d: %w", id, err)
	}
	return rec, nil
}

// PutStream inserts rec or updates its mutable fields. Parties, schedule
// and deposit are fixed at creation and never rewritten.
//
// The update runs first: an INSERT ... ON CONFLICT would check the row's
// CHECK constraints against the incoming immutable fields before the
// conflict resolves.
func (t *Tx) PutStream(ctx context.Context, rec stream.Record) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE streams
		SET withdrawn_amount = ?, status = ?, cancelled_at = ?
		WHERE id = ?
	`, rec.WithdrawnAmount, string(rec.Status), int64(rec.CancelledAt), int64(rec.ID))
	if err != nil {
		return fmt.Errorf("update stream %d: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stream %d: %w", rec.ID, err)
	}
	if n > 0 {
		return nil
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO streams (
			id, sender, recipient, deposit_amount, rate_per_second,
			start_time, cliff_time, end_time,
			withdrawn_amount, status, cancelled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		int64(rec.ID), string(rec.Sender), string(rec.Recipient),
		rec.DepositAmount, rec.RatePerSecond,
		int64(rec.StartTime), int64(rec.CliffTime), int64(rec.EndTime),
		rec.WithdrawnAmount, string(rec.Status), int64(rec.CancelledAt),
	)
	if err != nil {
		return fmt.Errorf("put stream %d: %w", rec.ID, err)
	}
	return nil
}

// Streams returns records ordered by id. An empty participant matches
// every record.
func (t *Tx) Streams(ctx context.Context, participant stream.Principal) ([]stream.Record, error) {
	query := selectStream
	var args []any
	if participant != "" {
		query += " WHERE sender = ? OR recipient = ?"
		args = append(args, string(participant), string(participant))
	}
	query += " ORDER BY id ASC"

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query streams: %w", err)
	}
	defer rows.Close()

	var recs []stream.Record
	for rows.Next() {
		rec, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streams: %w", err)
	}
	return recs, nil
}

// Move debits from and credits to. A zero amount is a no-op.
func (t *Tx) Move(ctx context.Context, from, to stream.Principal, amount int64) error {
	if amount < 0 {
		return stream.NewValidationError("transfer amount must not be negative")
	}
	if amount == 0 {
		return nil
	}

	have, err := t.balance(ctx, from)
	if err != nil {
		return err
	}
	if have < amount {
		return stream.NewInsufficientBalanceError(from, have, amount)
	}
	if err := t.setBalance(ctx, from, have-amount); err != nil {
		return err
	}
	return t.credit(ctx, to, amount)
}

// AppendEvent adds ev to the journal and returns the assigned seq.
func (t *Tx) AppendEvent(ctx context.Context, ev stream.Event) (int64, error) {
	var streamID sql.NullInt64
	if ev.StreamID != nil {
		streamID = sql.NullInt64{Int64: int64(*ev.StreamID), Valid: true}
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO events (id, kind, stream_id, time, actor, amount, refund)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, string(ev.Kind), streamID, int64(ev.Time), string(ev.Actor), ev.Amount, ev.Refund)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event seq: %w", err)
	}
	return seq, nil
}

// Events returns journal entries in seq order.
func (t *Tx) Events(ctx context.Context, filter stream.EventFilter) ([]stream.Event, error) {
	query := "SELECT seq, id, kind, stream_id, time, actor, amount, refund FROM events"
	var args []any
	if filter.StreamID != nil {
		query += " WHERE stream_id = ?"
		args = append(args, int64(*filter.StreamID))
	}
	query += " ORDER BY seq ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var evs []stream.Event
	for rows.Next() {
		var (
			ev       stream.Event
			kind     string
			streamID sql.NullInt64
			at       int64
			actor    string
		)
		if err := rows.Scan(&ev.Seq, &ev.ID, &kind, &streamID, &at, &actor, &ev.Amount, &ev.Refund); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = stream.EventKind(kind)
		ev.Time = uint64(at)
		ev.Actor = stream.Principal(actor)
		if streamID.Valid {
			id := uint64(streamID.Int64)
			ev.StreamID = &id
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return evs, nil
}

const selectStream = `
	SELECT id, sender, recipient, deposit_amount, rate_per_second,
		start_time, cliff_time, end_time,
		withdrawn_amount, status, cancelled_at
	FROM streams`

func scanStream(s rowScanner) (stream.Record, error) {
	var (
		rec                              stream.Record
		id, start, cliff, end, cancelled int64
		sender, recipient, status        string
	)
	err := s.Scan(
		&id, &sender, &recipient, &rec.DepositAmount, &rec.RatePerSecond,
		&start, &cliff, &end,
		&rec.WithdrawnAmount, &status, &cancelled,
	)
	if err != nil {
		return stream.Record{}, err
	}

	st, err := stream.ParseStatus(status)
	if err != nil {
		return stream.Record{}, fmt.Errorf("stream %d: %w", id, err)
	}

	rec.ID = uint64(id)
	rec.Sender = stream.Principal(sender)
	rec.Recipient = stream.Principal(recipient)
	rec.StartTime = uint64(start)
	rec.CliffTime = uint64(cliff)
	rec.EndTime = uint64(end)
	rec.Status = st
	rec.CancelledAt = uint64(cancelled)
	return rec, nil
}

func (t *Tx) counter(ctx context.Context, name string) (int64, bool, error) {
	var v int64
	err := t.tx.QueryRowContext(ctx, "SELECT value FROM counters WHERE name = ?", name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query counter %s: %w", name, err)
	}
	return v, true, nil
}

func (t *Tx) setCounter(ctx context.Context, name string, v int64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO counters (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, name, v)
	if err != nil {
		return fmt.Errorf("set counter %s: %w", name, err)
	}
	return nil
}

func (t *Tx) balance(ctx context.Context, account stream.Principal) (int64, error) {
	var amount int64
	err := t.tx.QueryRowContext(ctx, "SELECT amount FROM balances WHERE account = ?", string(account)).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query balance %s: %w", account, err)
	}
	return amount, nil
}

func (t *Tx) setBalance(ctx context.Context, account stream.Principal, amount int64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO balances (account, amount) VALUES (?, ?)
		ON CONFLICT(account) DO UPDATE SET amount = excluded.amount
	`, string(account), amount)
	if err != nil {
		return fmt.Errorf("set balance %s: %w", account, err)
	}
	return nil
}

func (t *Tx) credit(ctx context.Context, account stream.Principal, amount int64) error {
	have, err := t.balance(ctx, account)
	if err != nil {
		return err
	}
	if have > math.MaxInt64-amount {
		return stream.NewBalanceOverflowError(account, have, amount)
	}
	return t.setBalance(ctx, account, have+amount)
}
