package engine

import (
	"time"

	"github.com/roach88/pricetrail/internal/catalog"
)

// Clock supplies the engine's notion of "now". The dedup gate is keyed
// on the calendar day derived from it, so tests inject a fixed clock to
// exercise same-day and next-day semantics deterministically.
//
// Implemented by WallClock (production) and testutil.FixedClock (tests).
type Clock interface {
	Now() time.Time
}

// WallClock reads the system clock.
type WallClock struct{}

// Now returns the current wall-clock time.
func (WallClock) Now() time.Time { return time.Now() }

// today derives the current calendar day from the clock.
func today(c Clock) catalog.Day {
	return catalog.DayOf(c.Now())
}
