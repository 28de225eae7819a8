// Package clientsim implements the client-side reception model spec.md §9
// assumes exists on the other end of the wire protocol: buffered timelines
// that smooth over jitter and out-of-order delivery, and a ping-based clock
// sync that estimates server time from round trips. None of this runs on
// the match server; it ships alongside it so the wire format in
// internal/wire has a documented, testable consumer.
package clientsim

import "skirmish-server/internal/mathutil"

// defaultWindowSeconds is the sliding-window retention spec.md §9 names
// ("1-2 s") for both timeline kinds.
const defaultWindowSeconds = 1.5

// PositionSample is one timestamped stepped-timeline entry: a position or
// an event list tagged with the simulation time it belongs to.
type PositionSample struct {
	Time float64
	X, Y float64
}

// SteppedTimeline buffers position/event samples in arrival order and, on
// Get, releases at most the oldest sample strictly older than the query
// time — consumed once, per spec.md §9. Samples are assumed to arrive in
// non-decreasing Time order (the server emits full/delta records in tick
// order); Push does not re-sort.
type SteppedTimeline struct {
	window  float64
	samples []PositionSample
}

// NewSteppedTimeline builds a timeline retaining windowSeconds of history.
// A non-positive windowSeconds falls back to the spec's default.
func NewSteppedTimeline(windowSeconds float64) *SteppedTimeline {
	if windowSeconds <= 0 {
		windowSeconds = defaultWindowSeconds
	}
	return &SteppedTimeline{window: windowSeconds}
}

// Push appends a new sample and evicts anything older than the window
// relative to the newest sample seen so far.
func (t *SteppedTimeline) Push(s PositionSample) {
	t.samples = append(t.samples, s)
	cutoff := s.Time - t.window
	i := 0
	for i < len(t.samples) && t.samples[i].Time < cutoff {
		i++
	}
	if i > 0 {
		t.samples = t.samples[i:]
	}
}

// Get returns the oldest buffered sample strictly older than simTime and
// removes it from the buffer. Returns false if no such sample exists yet
// (the caller should hold its last rendered value).
func (t *SteppedTimeline) Get(simTime float64) (PositionSample, bool) {
	if len(t.samples) == 0 || !(t.samples[0].Time < simTime) {
		return PositionSample{}, false
	}
	s := t.samples[0]
	t.samples = t.samples[1:]
	return s, true
}

// Len reports how many samples are currently buffered (for tests/metrics).
func (t *SteppedTimeline) Len() int {
	return len(t.samples)
}

// InterpolationMode selects how InterpolatedTimeline.Get blends between the
// two straddling samples.
type InterpolationMode int

const (
	// Linear blends scalars (speed, health-as-percentage, ...) with plain
	// linear interpolation.
	Linear InterpolationMode = iota
	// Angular blends cyclic quantities (facing angle) the short way around
	// the circle via mathutil.AngleDifference.
	Angular
	// Hold disables interpolation: Get returns the most recent sample at or
	// before simTime, matching spec.md §9's "none" step-hold option.
	Hold
)

// ScalarSample is one timestamped interpolated-timeline entry.
type ScalarSample struct {
	Time  float64
	Value float64
}

// InterpolatedTimeline buffers scalar samples and exposes Get(t), which
// linearly (or angularly, or by holding) interpolates between the two
// samples straddling t, per spec.md §9.
type InterpolatedTimeline struct {
	mode    InterpolationMode
	window  float64
	samples []ScalarSample
}

// NewInterpolatedTimeline builds a timeline in the given mode, retaining
// windowSeconds of history (falls back to the spec's default if <= 0).
func NewInterpolatedTimeline(mode InterpolationMode, windowSeconds float64) *InterpolatedTimeline {
	if windowSeconds <= 0 {
		windowSeconds = defaultWindowSeconds
	}
	return &InterpolatedTimeline{mode: mode, window: windowSeconds}
}

// Push appends a new sample, keeping samples in Time order (out-of-order
// pushes are inserted in place, since interpolation requires a sorted
// buffer) and evicting anything older than the window.
func (t *InterpolatedTimeline) Push(s ScalarSample) {
	i := len(t.samples)
	for i > 0 && t.samples[i-1].Time > s.Time {
		i--
	}
	t.samples = append(t.samples, ScalarSample{})
	copy(t.samples[i+1:], t.samples[i:])
	t.samples[i] = s

	cutoff := s.Time - t.window
	j := 0
	for j < len(t.samples)-1 && t.samples[j].Time < cutoff {
		j++
	}
	if j > 0 {
		t.samples = t.samples[j:]
	}
}

// Get interpolates the value at simTime. Returns false if no sample has
// arrived yet. Before the first sample or after the last, the nearest edge
// sample is held.
func (t *InterpolatedTimeline) Get(simTime float64) (float64, bool) {
	n := len(t.samples)
	if n == 0 {
		return 0, false
	}
	if simTime <= t.samples[0].Time {
		return t.samples[0].Value, true
	}
	last := t.samples[n-1]
	if simTime >= last.Time {
		return last.Value, true
	}

	lo := 0
	for lo < n-1 && t.samples[lo+1].Time <= simTime {
		lo++
	}
	a, b := t.samples[lo], t.samples[lo+1]
	if t.mode == Hold {
		return a.Value, true
	}
	span := b.Time - a.Time
	if span <= 0 {
		return a.Value, true
	}
	frac := (simTime - a.Time) / span

	if t.mode == Angular {
		step := mathutil.AngleDifference(a.Value, b.Value) * frac
		return mathutil.AngleRotate(a.Value, b.Value, step), true
	}
	return a.Value + (b.Value-a.Value)*frac, true
}
