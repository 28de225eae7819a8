package clientsim

import "testing"

func TestClockSyncRenderTimeUnsetUntilFirstPong(t *testing.T) {
	cs := NewClockSync(0.08, 1)
	if _, ok := cs.RenderTime(100); ok {
		t.Fatal("expected RenderTime to report unset before any pong")
	}
}

func TestClockSyncEstimatesOffsetAndLatency(t *testing.T) {
	cs := NewClockSync(0.08, 1) // smoothing=1: each sample fully overwrites

	// Ping sent at local t=10, pong received at local t=10.2 (200ms RTT),
	// server reported game time 55 at the moment it replied.
	cs.RecordPong(10, 10.2, 55)

	if got, want := cs.Latency(), 0.1; absDiff(got, want) > 1e-9 {
		t.Errorf("expected latency %.3f, got %.3f", want, got)
	}

	renderTime, ok := cs.RenderTime(10.2)
	if !ok {
		t.Fatal("expected RenderTime to report a value after a pong")
	}
	// serverGameTime was 55 when the client's clock read 10.1 (10.2-latency).
	// offset = 55 - 10.1 = 44.9. RenderTime(10.2) = 10.2 + 44.9 - 0.1 - 0.08.
	want := 10.2 + 44.9 - 0.1 - 0.08
	if absDiff(renderTime, want) > 1e-9 {
		t.Errorf("expected render time %.4f, got %.4f", want, renderTime)
	}
}

func TestClockSyncSmoothsAcrossSamples(t *testing.T) {
	cs := NewClockSync(0.08, 0.5)
	cs.RecordPong(0, 0.2, 10)   // latency 0.1
	first := cs.Latency()
	cs.RecordPong(1, 1.4, 11.1) // latency 0.2, should pull the estimate up, not jump to it
	second := cs.Latency()

	if !(second > first && second < 0.2) {
		t.Errorf("expected smoothed latency strictly between %.3f and 0.2, got %.3f", first, second)
	}
}

func TestClockSyncIgnoresNegativeRTT(t *testing.T) {
	cs := NewClockSync(0.08, 1)
	cs.RecordPong(10, 9, 5) // received before sent: malformed sample
	if _, ok := cs.RenderTime(10); ok {
		t.Fatal("expected a negative-RTT sample to be ignored, not recorded")
	}
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
