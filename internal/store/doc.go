// Package store provides SQLite-backed durable storage for the stream ledger.
//
// One database file holds every piece of ledger state:
//   - Config: the one-time token/admin pair (immutable once written)
//   - Counters: the next stream id and the running minted supply
//   - Streams: one row per stream record, never deleted
//   - Balances: token balances per account, custody included
//   - Events: the append-only operation journal
//
// Store implements ledger.Store. Each Update is a single SQLite
// transaction, so a ledger operation that fails part way leaves no record,
// counter, balance or journal change behind.
//
// # Integer Encoding
//
// Stream ids and timestamps are uint64 in Go. SQLite integers are signed
// 64-bit, so they are stored as their int64 bit pattern and converted back
// on read. Values above math.MaxInt64 round-trip exactly but compare as
// negative inside SQL.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
