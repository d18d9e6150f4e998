// Package stream implements the pure core of the payment-streaming ledger.
//
// A stream is a sender-to-recipient vesting agreement: a fixed deposit
// vests linearly at RatePerSecond between StartTime and EndTime, with
// nothing withdrawable before CliffTime. Everything in this package is
// side-effect free. Callers supply the record and the current ledger time
// and get back amounts, verdicts, or plans describing the next record
// state; persisting records and moving funds is the job of package ledger.
//
// # Accrual
//
// Accrued is purely time based. Pausing a stream never changes how much
// has vested, only whether the recipient may withdraw it. Accrual is
// capped at the deposit no matter how far past EndTime the clock moves,
// and freezes at CancelledAt once a stream is cancelled.
//
// # Lifecycle
//
//	Active --pause--> Paused --resume--> Active
//	Active --withdraw (fully drained)--> Completed
//	Active|Paused --cancel--> Cancelled
//
// Cancelled and Completed are terminal. A Cancelled stream still accepts
// withdraw until the vested residual held in custody is drained.
//
// # Settlement
//
// PlanWithdraw and PlanCancel compute fund movements. Every plan keeps
// withdrawn + held == deposit, and PlanCancel verifies
// refund + residual + withdrawn == deposit before returning.
package stream
