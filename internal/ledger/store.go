package ledger

import (
	"context"

	"github.com/roach88/streamvest/internal/stream"
)

// Store is the persistence substrate the ledger runs on.
//
// Update runs fn in a single atomic unit: if fn returns an error, every
// write made through the Tx (records, counter, balances, journal) is
// discarded and the error is returned unchanged. View runs fn without
// allowing writes to commit.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of capabilities available inside one Store transaction.
type Tx interface {
	// Config returns the configuration or a NOT_FOUND error when the
	// ledger has never been configured.
	Config(ctx context.Context) (stream.Config, error)
	PutConfig(ctx context.Context, cfg stream.Config) error

	// NextStreamID returns the id the next successful creation will use.
	NextStreamID(ctx context.Context) (uint64, error)
	SetNextStreamID(ctx context.Context, id uint64) error

	// Stream returns the record for id or a NOT_FOUND error.
	Stream(ctx context.Context, id uint64) (stream.Record, error)
	PutStream(ctx context.Context, rec stream.Record) error
	Streams(ctx context.Context, participant stream.Principal) ([]stream.Record, error)

	// Move transfers amount from one account to another. It fails with
	// INSUFFICIENT_BALANCE when from cannot cover amount.
	Move(ctx context.Context, from, to stream.Principal, amount int64) error

	// AppendEvent adds ev to the journal and returns its assigned seq.
	AppendEvent(ctx context.Context, ev stream.Event) (int64, error)
	Events(ctx context.Context, filter stream.EventFilter) ([]stream.Event, error)
}
