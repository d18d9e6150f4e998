package stream

// Operation names a mutating ledger operation for lifecycle checks.
type Operation string

const (
	OpWithdraw Operation = "withdraw"
	OpPause    Operation = "pause"
	OpResume   Operation = "resume"
	OpCancel   Operation = "cancel"
)

// Check returns nil when op is legal in status s, and an ILLEGAL_STATE
// error otherwise.
func Check(op Operation, s Status) error {
	switch op {
	case OpWithdraw:
		return CheckWithdraw(s)
	case OpPause:
		return CheckPause(s)
	case OpResume:
		return CheckResume(s)
	case OpCancel:
		return CheckCancel(s)
	}
	return NewIllegalStateError("unknown operation "+string(op), s)
}

// CheckWithdraw allows Active streams and Cancelled streams (which may
// still hold a vested residual). Paused streams are always rejected,
// whatever has accrued.
func CheckWithdraw(s Status) error {
	switch s {
	case StatusActive, StatusCancelled:
		return nil
	case StatusPaused:
		return NewIllegalStateError("cannot withdraw from paused stream", s)
	case StatusCompleted:
		return NewIllegalStateError("stream already completed", s)
	}
	return NewIllegalStateError("unknown stream status", s)
}

// CheckPause allows only Active streams.
func CheckPause(s Status) error {
	switch s {
	case StatusActive:
		return nil
	case StatusPaused:
		return NewIllegalStateError("stream already paused", s)
	}
	return terminalError("cannot pause", s)
}

// CheckResume allows only Paused streams.
func CheckResume(s Status) error {
	switch s {
	case StatusPaused:
		return nil
	case StatusActive:
		return NewIllegalStateError("stream is not paused", s)
	}
	return terminalError("cannot resume", s)
}

// CheckCancel allows Active and Paused streams.
func CheckCancel(s Status) error {
	switch s {
	case StatusActive, StatusPaused:
		return nil
	}
	return terminalError("cannot cancel", s)
}

func terminalError(prefix string, s Status) error {
	switch s {
	case StatusCancelled:
		return NewIllegalStateError(prefix+" cancelled stream", s)
	case StatusCompleted:
		return NewIllegalStateError(prefix+" completed stream", s)
	}
	return NewIllegalStateError(prefix+": unknown stream status", s)
}

// StatusAfterWithdraw returns the status a stream moves to once
// withdrawn has been applied: Completed exactly when an Active stream is
// fully drained. Cancelled streams stay Cancelled.
func StatusAfterWithdraw(current Status, withdrawn, deposit int64) Status {
	if current == StatusActive && withdrawn == deposit {
		return StatusCompleted
	}
	return current
}

// Paused returns the record with status Paused, after CheckPause.
func Paused(r Record) (Record, error) {
	if err := CheckPause(r.Status); err != nil {
		return Record{}, err
	}
	r.Status = StatusPaused
	return r, nil
}

// Resumed returns the record with status Active, after CheckResume.
func Resumed(r Record) (Record, error) {
	if err := CheckResume(r.Status); err != nil {
		return Record{}, err
	}
	r.Status = StatusActive
	return r, nil
}
