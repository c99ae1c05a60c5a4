package engagement

import (
	"math/rand"
	"time"
)

// Clock supplies the current time. Day boundaries are evaluated in the
// location of the returned time, so a clock fixes the user's calendar.
type Clock interface {
	Now() time.Time
}

// RandSource supplies randomness for bonus draws and quest selection.
// *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// SystemClock reads the wall clock in the local time zone.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// NewRand returns a RandSource seeded from the wall clock.
func NewRand() RandSource {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
