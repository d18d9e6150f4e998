package stream

import (
	"math"
	"math/bits"
)

// MulAmount returns rate * seconds, failing with ErrCodeOverflow when the
// product does not fit in an int64 amount. rate must be non-negative.
func MulAmount(rate int64, seconds uint64) (int64, error) {
	if rate < 0 {
		return 0, NewValidationError("rate must not be negative")
	}
	hi, lo := bits.Mul64(uint64(rate), seconds)
	if hi != 0 || lo > math.MaxInt64 {
		return 0, NewOverflowError(rate, seconds)
	}
	return int64(lo), nil
}

// Accrued returns the amount vested to the recipient as of now.
//
// Nothing vests before the cliff. From the cliff on, the vested amount is
// rate * (now - start), capped at the deposit. The elapsed time is clamped
// to the stream's duration before multiplying: for a fully funded record
// rate * duration == deposit, so the cap holds for any now without the
// product ever overflowing. Status does not matter except for Cancelled,
// where evaluation stops at CancelledAt.
func Accrued(r Record, now uint64) (int64, error) {
	if r.Status == StatusCancelled && now > r.CancelledAt {
		now = r.CancelledAt
	}
	if now < r.CliffTime {
		return 0, nil
	}

	var elapsed uint64
	if now > r.StartTime {
		elapsed = now - r.StartTime
	}
	if r.EndTime >= r.StartTime {
		if duration := r.EndTime - r.StartTime; elapsed > duration {
			elapsed = duration
		}
	}

	raw, err := MulAmount(r.RatePerSecond, elapsed)
	if err != nil {
		return 0, err
	}
	if raw > r.DepositAmount {
		return r.DepositAmount, nil
	}
	return raw, nil
}

// Owed returns accrued(now) - withdrawn, the amount the recipient could
// take right now if the lifecycle allowed it. Never negative.
func Owed(r Record, now uint64) (int64, error) {
	accrued, err := Accrued(r, now)
	if err != nil {
		return 0, err
	}
	if accrued <= r.WithdrawnAmount {
		return 0, nil
	}
	return accrued - r.WithdrawnAmount, nil
}

// Held returns the amount still in custody for this stream:
// deposit - withdrawn for live streams, and accrued-at-cancel - withdrawn
// for cancelled ones (the unvested part was refunded at cancel).
func Held(r Record) (int64, error) {
	if r.Status != StatusCancelled {
		return r.DepositAmount - r.WithdrawnAmount, nil
	}
	return Owed(r, r.CancelledAt)
}
