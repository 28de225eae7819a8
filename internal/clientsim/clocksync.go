package clientsim

// FixedDelaySeconds is the render-behind cushion spec.md §9 names
// ("fixedDelay ≈ 80 ms") so timeline playback absorbs jitter without the
// server needing to withhold data.
const FixedDelaySeconds = 0.080

// ClockSync estimates the server's simulation clock from ping/pong round
// trips, per spec.md §9's "Simulation delay" note: the client plays
// timelines back at serverTimeEstimate − latency − fixedDelay, not at its
// own wall clock.
//
// Each RecordPong call is one round-trip sample; the offset and latency
// estimates are exponentially smoothed so a single delayed pong doesn't
// yank playback backward.
type ClockSync struct {
	fixedDelay float64
	smoothing  float64

	have    bool
	offset  float64 // serverGameTime - localTime at the moment the sample was taken
	latency float64 // one-way latency estimate, seconds
}

// NewClockSync builds a ClockSync with the given fixed delay and an
// exponential-smoothing factor in (0,1] (higher weights new samples more).
// A non-positive fixedDelay or smoothing falls back to sane defaults.
func NewClockSync(fixedDelay, smoothing float64) *ClockSync {
	if fixedDelay <= 0 {
		fixedDelay = FixedDelaySeconds
	}
	if smoothing <= 0 || smoothing > 1 {
		smoothing = 0.2
	}
	return &ClockSync{fixedDelay: fixedDelay, smoothing: smoothing}
}

// RecordPong folds in one ping/pong round trip: sentAt and receivedAt are
// the client's own clock readings when the ping was sent and the pong
// arrived, and serverGameTime is the game time the pong reported (sampled
// at the server's end of the round trip).
func (c *ClockSync) RecordPong(sentAt, receivedAt, serverGameTime float64) {
	rtt := receivedAt - sentAt
	if rtt < 0 {
		return
	}
	latency := rtt / 2
	// The server's clock read serverGameTime at roughly receivedAt-latency
	// on the client's clock.
	offset := serverGameTime - (receivedAt - latency)

	if !c.have {
		c.latency, c.offset, c.have = latency, offset, true
		return
	}
	c.latency += (latency - c.latency) * c.smoothing
	c.offset += (offset - c.offset) * c.smoothing
}

// RenderTime returns the simulation time timelines should be queried at,
// given the client's current wall-clock reading localNow. Returns false
// until at least one pong has been recorded.
func (c *ClockSync) RenderTime(localNow float64) (float64, bool) {
	if !c.have {
		return 0, false
	}
	return localNow + c.offset - c.latency - c.fixedDelay, true
}

// Latency returns the current smoothed one-way latency estimate.
func (c *ClockSync) Latency() float64 {
	return c.latency
}
