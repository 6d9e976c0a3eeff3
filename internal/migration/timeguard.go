package migration

import "time"

// Clock is the time source of the engine.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// TimeGuard tracks the time budget of one invocation. The guard is polled:
// a single slow row can overrun the budget by its own duration.
type TimeGuard struct {
	clock  Clock
	start  time.Time
	budget time.Duration
}

// NewTimeGuard starts a guard. A budget of zero or less never expires.
func NewTimeGuard(clock Clock, budget time.Duration) *TimeGuard {
	return &TimeGuard{clock: clock, start: clock.Now(), budget: budget}
}

// Remaining reports whether the invocation may keep working.
func (g *TimeGuard) Remaining() bool {
	return g.budget <= 0 || g.Elapsed() < g.budget
}

// Elapsed returns the time since the guard started.
func (g *TimeGuard) Elapsed() time.Duration {
	return g.clock.Now().Sub(g.start)
}

// Start returns the time the guard started.
func (g *TimeGuard) Start() time.Time {
	return g.start
}
