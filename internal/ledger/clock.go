package ledger

import "time"

// Clock supplies ledger time in whole seconds.
//
// The ledger never reads a clock itself: callers read one at the edge and
// pass the value in Call.Now, so every operation is evaluated against an
// explicit timestamp and replays are exact.
type Clock interface {
	Now() uint64
}

// SystemClock reads the wall clock as Unix seconds.
type SystemClock struct{}

// Now returns the current Unix time. Times before the epoch read as 0.
func (SystemClock) Now() uint64 {
	s := time.Now().Unix()
	if s < 0 {
		return 0
	}
	return uint64(s)
}

// FixedClock always reads the same time.
type FixedClock uint64

// Now returns the fixed time.
func (c FixedClock) Now() uint64 {
	return uint64(c)
}
