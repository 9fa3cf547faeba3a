package engine

import "time"

// Clock supplies the execution timestamps stamped onto audit records.
//
// The engine never branches on time - ordering and identity come from
// content hashes and document IDs - so the clock exists purely for the
// audit trail. Tests inject FixedClock to keep records reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current wall time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant. Used for testing and
// golden output.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.T
}
