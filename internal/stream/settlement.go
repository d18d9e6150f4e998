package stream

import "fmt"

// Validate checks the terms of a new stream.
//
// Deposit and rate must be positive, start <= cliff <= end, sender and
// recipient must differ, and the deposit must fund the declared duration
// exactly: deposit == rate * (end - start). An overflowing product is
// reported as ARITHMETIC_OVERFLOW rather than as a funding mismatch.
func Validate(p Params) error {
	if p.Sender == "" || p.Recipient == "" {
		return NewValidationError("sender and recipient are required")
	}
	if p.Sender == p.Recipient {
		return NewValidationError("sender and recipient must differ").With("principal", string(p.Sender))
	}
	if p.DepositAmount <= 0 {
		return NewValidationError("deposit amount must be positive").
			With("deposit", fmt.Sprintf("%d", p.DepositAmount))
	}
	if p.RatePerSecond <= 0 {
		return NewValidationError("rate per second must be positive").
			With("rate", fmt.Sprintf("%d", p.RatePerSecond))
	}
	if p.StartTime > p.CliffTime || p.CliffTime > p.EndTime {
		return NewValidationError("require start_time <= cliff_time <= end_time").
			With("start", fmt.Sprintf("%d", p.StartTime)).
			With("cliff", fmt.Sprintf("%d", p.CliffTime)).
			With("end", fmt.Sprintf("%d", p.EndTime))
	}

	funded, err := MulAmount(p.RatePerSecond, p.EndTime-p.StartTime)
	if err != nil {
		return err
	}
	if funded != p.DepositAmount {
		return NewValidationError("deposit must equal rate_per_second * (end_time - start_time)").
			With("deposit", fmt.Sprintf("%d", p.DepositAmount)).
			With("required", fmt.Sprintf("%d", funded))
	}
	return nil
}

// NewRecord validates p and returns the Active record for stream id.
func NewRecord(id uint64, p Params) (Record, error) {
	if err := Validate(p); err != nil {
		return Record{}, err
	}
	return Record{
		ID:            id,
		Sender:        p.Sender,
		Recipient:     p.Recipient,
		DepositAmount: p.DepositAmount,
		RatePerSecond: p.RatePerSecond,
		StartTime:     p.StartTime,
		CliffTime:     p.CliffTime,
		EndTime:       p.EndTime,
		Status:        StatusActive,
	}, nil
}

// WithdrawPlan is the outcome of a legal withdraw: Amount moves from
// custody to the recipient and Next replaces the stored record.
type WithdrawPlan struct {
	Amount  int64
	Accrued int64
	Next    Record
}

// PlanWithdraw computes the withdrawal for r at now.
func PlanWithdraw(r Record, now uint64) (WithdrawPlan, error) {
	if err := CheckWithdraw(r.Status); err != nil {
		return WithdrawPlan{}, err
	}
	accrued, err := Accrued(r, now)
	if err != nil {
		return WithdrawPlan{}, err
	}
	owed := accrued - r.WithdrawnAmount
	if owed <= 0 {
		return WithdrawPlan{}, NewNothingToWithdrawError(accrued, r.WithdrawnAmount)
	}

	next := r
	next.WithdrawnAmount += owed
	if next.WithdrawnAmount > next.DepositAmount {
		return WithdrawPlan{}, fmt.Errorf("withdraw plan: withdrawn %d exceeds deposit %d for stream %d",
			next.WithdrawnAmount, next.DepositAmount, r.ID)
	}
	next.Status = StatusAfterWithdraw(r.Status, next.WithdrawnAmount, next.DepositAmount)

	return WithdrawPlan{Amount: owed, Accrued: accrued, Next: next}, nil
}

// CancelPlan is the settlement of a cancellation.
//
// Refund moves from custody back to the sender. Residual stays in custody
// for the recipient to withdraw later. Refund is based on what has
// accrued, not on what has been withdrawn.
type CancelPlan struct {
	Accrued  int64
	Refund   int64
	Residual int64
	Next     Record
}

// PlanCancel computes the split for cancelling r at now.
func PlanCancel(r Record, now uint64) (CancelPlan, error) {
	if err := CheckCancel(r.Status); err != nil {
		return CancelPlan{}, err
	}
	accrued, err := Accrued(r, now)
	if err != nil {
		return CancelPlan{}, err
	}

	plan := CancelPlan{
		Accrued:  accrued,
		Refund:   r.DepositAmount - accrued,
		Residual: accrued - r.WithdrawnAmount,
	}
	if plan.Refund < 0 || plan.Residual < 0 ||
		plan.Refund+plan.Residual+r.WithdrawnAmount != r.DepositAmount {
		return CancelPlan{}, fmt.Errorf("cancel plan: settlement does not conserve deposit for stream %d "+
			"(refund=%d residual=%d withdrawn=%d deposit=%d)",
			r.ID, plan.Refund, plan.Residual, r.WithdrawnAmount, r.DepositAmount)
	}

	next := r
	next.Status = StatusCancelled
	next.CancelledAt = now
	plan.Next = next
	return plan, nil
}
