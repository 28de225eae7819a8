package clientsim

import (
	"math"
	"testing"
)

func TestSteppedTimelineReturnsOldestStrictlyOlderOnce(t *testing.T) {
	tl := NewSteppedTimeline(5)
	tl.Push(PositionSample{Time: 1, X: 10, Y: 0})
	tl.Push(PositionSample{Time: 2, X: 20, Y: 0})

	s, ok := tl.Get(1.5)
	if !ok || s.X != 10 {
		t.Fatalf("expected the t=1 sample, got %+v ok=%v", s, ok)
	}
	if tl.Len() != 1 {
		t.Errorf("expected the consumed sample to be removed, len=%d", tl.Len())
	}

	if _, ok := tl.Get(1.5); ok {
		t.Error("expected no sample strictly older than 1.5 after consuming the t=1 one")
	}

	s2, ok := tl.Get(2.5)
	if !ok || s2.X != 20 {
		t.Fatalf("expected the t=2 sample, got %+v ok=%v", s2, ok)
	}
}

func TestSteppedTimelineEvictsOutsideWindow(t *testing.T) {
	tl := NewSteppedTimeline(1)
	tl.Push(PositionSample{Time: 0, X: 1})
	tl.Push(PositionSample{Time: 0.5, X: 2})
	tl.Push(PositionSample{Time: 2, X: 3}) // evicts anything older than 1

	if tl.Len() != 1 {
		t.Fatalf("expected only the newest sample to survive eviction, len=%d", tl.Len())
	}
}

func TestInterpolatedTimelineLinear(t *testing.T) {
	tl := NewInterpolatedTimeline(Linear, 5)
	tl.Push(ScalarSample{Time: 0, Value: 0})
	tl.Push(ScalarSample{Time: 2, Value: 10})

	v, ok := tl.Get(1)
	if !ok || math.Abs(v-5) > 1e-9 {
		t.Fatalf("expected 5 at the midpoint, got %v ok=%v", v, ok)
	}
}

func TestInterpolatedTimelineHoldsBeforeFirstAndAfterLast(t *testing.T) {
	tl := NewInterpolatedTimeline(Linear, 5)
	tl.Push(ScalarSample{Time: 1, Value: 100})
	tl.Push(ScalarSample{Time: 2, Value: 200})

	if v, ok := tl.Get(0); !ok || v != 100 {
		t.Errorf("expected the first sample held before it arrives, got %v ok=%v", v, ok)
	}
	if v, ok := tl.Get(5); !ok || v != 200 {
		t.Errorf("expected the last sample held past it, got %v ok=%v", v, ok)
	}
}

func TestInterpolatedTimelineAngularTakesShortWay(t *testing.T) {
	tl := NewInterpolatedTimeline(Angular, 5)
	// Wrapping from just under 2π to just over 0 should interpolate through
	// the wrap point, not the long way around through π.
	almostFullCircle := 2*math.Pi - 0.1
	tl.Push(ScalarSample{Time: 0, Value: almostFullCircle})
	tl.Push(ScalarSample{Time: 1, Value: 0.1})

	v, ok := tl.Get(0.5)
	if !ok {
		t.Fatal("expected a value")
	}
	// Midpoint of the short arc across the wrap is exactly 0 (mod 2π).
	wrapped := math.Mod(v+math.Pi, 2*math.Pi) - math.Pi
	if math.Abs(wrapped) > 1e-6 {
		t.Errorf("expected the interpolated angle near 0 (wrap midpoint), got %v", v)
	}
}

func TestInterpolatedTimelineHoldModeDoesNotBlend(t *testing.T) {
	tl := NewInterpolatedTimeline(Hold, 5)
	tl.Push(ScalarSample{Time: 0, Value: 1})
	tl.Push(ScalarSample{Time: 2, Value: 9})

	v, ok := tl.Get(1.9)
	if !ok || v != 1 {
		t.Errorf("expected the earlier sample held until the next lands, got %v ok=%v", v, ok)
	}
}

func TestInterpolatedTimelineOutOfOrderPushIsSorted(t *testing.T) {
	tl := NewInterpolatedTimeline(Linear, 5)
	tl.Push(ScalarSample{Time: 2, Value: 20})
	tl.Push(ScalarSample{Time: 0, Value: 0})
	tl.Push(ScalarSample{Time: 1, Value: 10})

	v, ok := tl.Get(0.5)
	if !ok || math.Abs(v-5) > 1e-9 {
		t.Fatalf("expected 5 between the t=0 and t=1 samples, got %v ok=%v", v, ok)
	}
}
