package stream

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Principal identifies an account that can hold balances and authorize
// operations: a sender, a recipient, the admin, or the custody account.
type Principal string

// ParsePrincipal normalizes s to NFC and validates it.
//
// Identities that render identically must map to the same account, so the
// composed form is the only one ever stored. Empty identities and
// identities containing whitespace or control characters are rejected.
func ParsePrincipal(s string) (Principal, error) {
	n := norm.NFC.String(strings.TrimSpace(s))
	if n == "" {
		return "", NewValidationError("principal must not be empty")
	}
	for _, r := range n {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", NewValidationError(fmt.Sprintf("principal %q contains whitespace or control characters", s))
		}
	}
	return Principal(n), nil
}

// MustPrincipal is ParsePrincipal for literals known to be valid.
func MustPrincipal(s string) Principal {
	p, err := ParsePrincipal(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Principal) String() string { return string(p) }

// Status is the lifecycle state of a stream.
type Status string

const (
	StatusActive    Status = "Active"
	StatusPaused    Status = "Paused"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
)

// Terminal reports whether no further lifecycle transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus converts a stored status string back into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown stream status %q", s)
	}
	return st, nil
}

// Params are the caller-supplied terms of a new stream.
type Params struct {
	Sender        Principal
	Recipient     Principal
	DepositAmount int64
	RatePerSecond int64
	StartTime     uint64
	CliffTime     uint64
	EndTime       uint64
}

// Record is the persisted state of one stream.
//
// DepositAmount, RatePerSecond and the three timestamps are fixed at
// creation. WithdrawnAmount only grows. CancelledAt is meaningful only
// when Status is StatusCancelled.
type Record struct {
	ID              uint64    `json:"stream_id"`
	Sender          Principal `json:"sender"`
	Recipient       Principal `json:"recipient"`
	DepositAmount   int64     `json:"deposit_amount"`
	RatePerSecond   int64     `json:"rate_per_second"`
	StartTime       uint64    `json:"start_time"`
	CliffTime       uint64    `json:"cliff_time"`
	EndTime         uint64    `json:"end_time"`
	WithdrawnAmount int64     `json:"withdrawn_amount"`
	Status          Status    `json:"status"`
	CancelledAt     uint64    `json:"cancelled_at,omitempty"`
}

// Params returns the creation terms of the record.
func (r Record) Params() Params {
	return Params{
		Sender:        r.Sender,
		Recipient:     r.Recipient,
		DepositAmount: r.DepositAmount,
		RatePerSecond: r.RatePerSecond,
		StartTime:     r.StartTime,
		CliffTime:     r.CliffTime,
		EndTime:       r.EndTime,
	}
}

// Involves reports whether p is the sender or recipient of the stream.
func (r Record) Involves(p Principal) bool {
	return r.Sender == p || r.Recipient == p
}

// Config is the process-wide configuration, written exactly once.
type Config struct {
	Token Principal `json:"token"`
	Admin Principal `json:"admin"`
}
