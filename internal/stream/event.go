package stream

// EventKind names a committed ledger operation.
type EventKind string

const (
	EventConfigured EventKind = "configured"
	EventCreated    EventKind = "created"
	EventWithdrawn  EventKind = "withdrawn"
	EventPaused     EventKind = "paused"
	EventResumed    EventKind = "resumed"
	EventCancelled  EventKind = "cancelled"
)

// Event is one entry of the append-only operation journal.
//
// Seq is assigned by the store on append and orders the journal. Time is
// the ledger time the operation ran at, not the wall clock. Amount is the
// value moved to the recipient (withdraw) or into custody (create); Refund
// is the value returned to the sender on cancel.
type Event struct {
	ID       string    `json:"id"`
	Seq      int64     `json:"seq"`
	Kind     EventKind `json:"kind"`
	StreamID *uint64   `json:"stream_id,omitempty"`
	Time     uint64    `json:"time"`
	Actor    Principal `json:"actor,omitempty"`
	Amount   int64     `json:"amount,omitempty"`
	Refund   int64     `json:"refund,omitempty"`
}

// EventFilter selects journal entries. A nil StreamID matches every event.
type EventFilter struct {
	StreamID *uint64
	Limit    int
}
