package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/streamvest/internal/store"
	"github.com/roach88/streamvest/internal/stream"
)

// Views wrap ledger values so text output reads well while JSON output
// keeps the values' own field names.

type recordView stream.Record

func (r recordView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stream %d: %s -> %s\n", r.ID, r.Sender, r.Recipient)
	fmt.Fprintf(&b, "  status:    %s\n", r.Status)
	fmt.Fprintf(&b, "  deposit:   %d at %d/s\n", r.DepositAmount, r.RatePerSecond)
	fmt.Fprintf(&b, "  schedule:  start %d, cliff %d, end %d\n", r.StartTime, r.CliffTime, r.EndTime)
	fmt.Fprintf(&b, "  withdrawn: %d", r.WithdrawnAmount)
	if r.Status == stream.StatusCancelled {
		fmt.Fprintf(&b, "\n  cancelled: %d", r.CancelledAt)
	}
	return b.String()
}

// showView is a record plus its settlement position at a point in time.
type showView struct {
	recordView
	At      uint64 `json:"at"`
	Accrued int64  `json:"accrued"`
	Owed    int64  `json:"owed"`
}

func (v showView) String() string {
	return fmt.Sprintf("%s\n  at %d:      accrued %d, owed %d", v.recordView, v.At, v.Accrued, v.Owed)
}

type recordsView []recordView

func (rs recordsView) String() string {
	if len(rs) == 0 {
		return "no streams"
	}
	lines := make([]string, len(rs))
	for i, r := range rs {
		lines[i] = fmt.Sprintf("%4d  %-9s  %s -> %s  %d/%d",
			r.ID, r.Status, r.Sender, r.Recipient, r.WithdrawnAmount, r.DepositAmount)
	}
	return strings.Join(lines, "\n")
}

func newRecordsView(recs []stream.Record) recordsView {
	out := make(recordsView, len(recs))
	for i, r := range recs {
		out[i] = recordView(r)
	}
	return out
}

type eventsView []stream.Event

func (es eventsView) String() string {
	if len(es) == 0 {
		return "no events"
	}
	lines := make([]string, len(es))
	for i, e := range es {
		var b strings.Builder
		fmt.Fprintf(&b, "%4d  t=%d  %-10s", e.Seq, e.Time, e.Kind)
		if e.StreamID != nil {
			fmt.Fprintf(&b, "  stream=%d", *e.StreamID)
		}
		if e.Actor != "" {
			fmt.Fprintf(&b, "  actor=%s", e.Actor)
		}
		if e.Amount != 0 {
			fmt.Fprintf(&b, "  amount=%d", e.Amount)
		}
		if e.Refund != 0 {
			fmt.Fprintf(&b, "  refund=%d", e.Refund)
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

type configView stream.Config

func (c configView) String() string {
	return fmt.Sprintf("token: %s\nadmin: %s", c.Token, c.Admin)
}

// balancesView lists holdings and the total minted supply.
type balancesView struct {
	Balances    []store.AccountBalance `json:"balances"`
	TotalSupply int64                  `json:"total_supply"`
}

func (v balancesView) String() string {
	var b strings.Builder
	for _, bal := range v.Balances {
		fmt.Fprintf(&b, "%-24s %d\n", bal.Account, bal.Amount)
	}
	fmt.Fprintf(&b, "total supply: %d", v.TotalSupply)
	return b.String()
}

type balanceView struct {
	Account stream.Principal `json:"account"`
	Amount  int64            `json:"amount"`
}

func (v balanceView) String() string {
	return fmt.Sprintf("%s: %d", v.Account, v.Amount)
}

// streamIDView reports a newly created stream.
type streamIDView struct {
	StreamID uint64 `json:"stream_id"`
}

func (v streamIDView) String() string {
	return fmt.Sprintf("created stream %d", v.StreamID)
}

// amountView reports an amount computed or moved for a stream.
type amountView struct {
	StreamID uint64 `json:"stream_id"`
	At       uint64 `json:"at"`
	Amount   int64  `json:"amount"`
	verb     string
}

func (v amountView) String() string {
	return fmt.Sprintf("stream %d: %s %d at %d", v.StreamID, v.verb, v.Amount, v.At)
}

// statusView reports a lifecycle transition.
type statusView struct {
	StreamID uint64        `json:"stream_id"`
	Status   stream.Status `json:"status"`
}

func (v statusView) String() string {
	return fmt.Sprintf("stream %d: %s", v.StreamID, v.Status)
}
