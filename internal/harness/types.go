package harness

import (
	"github.com/roach88/streamvest/internal/store"
	"github.com/roach88/streamvest/internal/stream"
)

// TraceEvent records one executed step and its outcome.
//
// Exactly one of the outcome fields is meaningful: StreamID for a
// successful create, Amount for a successful withdraw or accrued, Error
// (an error code) for any failed step. Steps that succeed without a
// result leave all three empty.
type TraceEvent struct {
	Step     int      `json:"step"` // 1-based
	At       uint64   `json:"at"`
	Op       string   `json:"op"`
	As       []string `json:"as,omitempty"`
	StreamID *uint64  `json:"stream_id,omitempty"`
	Amount   *int64   `json:"amount,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Failed reports whether the step returned an error.
func (e TraceEvent) Failed() bool {
	return e.Error != ""
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every step in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Streams and Balances are the final ledger state.
	Streams  []stream.Record        `json:"streams"`
	Balances []store.AccountBalance `json:"balances"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Streams:  []stream.Record{},
		Balances: []store.AccountBalance{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
