package sim

import "skirmish-server/internal/mathutil"

// Clock is the game's authoritative time base: a Kahan-summed accumulation
// of per-tick dt, plus the last tick's start time so sub-tick precision can
// be added for ping replies, per spec.md §4.1/§4.2.
type Clock struct {
	sum           mathutil.Kahan
	lastTickStart float64 // seconds, monotonic clock source supplied by caller
}

// NewClock returns a zeroed clock.
func NewClock() *Clock {
	return &Clock{}
}

// Advance adds dt to the accumulated game time via Kahan summation — naive
// summation drifts noticeably over minutes of continuous play.
func (c *Clock) Advance(dt float64) {
	c.sum.Add(dt)
}

// GameTime returns the accumulated game-time value.
func (c *Clock) GameTime() float64 {
	return c.sum.Sum()
}

// SetTickStart records the wall-clock time (in seconds, from whatever
// monotonic source the caller uses) at which the current tick began.
func (c *Clock) SetTickStart(now float64) {
	c.lastTickStart = now
}

// GetTimeSinceLastTick returns now - lastTickStart, the sub-tick offset
// added to ping replies so replies carry sub-tick precision even though the
// game clock itself only advances once per tick.
func (c *Clock) GetTimeSinceLastTick(now float64) float64 {
	return now - c.lastTickStart
}
