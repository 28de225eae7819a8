package mathutil

import (
	"math"
	"testing"
)

func TestAngleToUint16RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		theta float64
	}{
		{"zero", 0},
		{"quarter", math.Pi / 2},
		{"half", math.Pi},
		{"almost full", TwoPi - 0.001},
		{"negative wraps", -0.0001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := AngleToUint16(tt.theta)
			decoded := Uint16ToAngle(encoded)
			wrapped := WrapAngle(tt.theta)

			diff := math.Abs(decoded - wrapped)
			if diff > TwoPi {
				diff = TwoPi - diff
			}
			if diff >= TwoPi/65535+1e-9 {
				t.Errorf("round trip exceeded one quantum: theta=%v decoded=%v diff=%v", tt.theta, decoded, diff)
			}
		})
	}
}

func TestAngleWrapNegative(t *testing.T) {
	got := WrapAngle(-0.0001)
	want := TwoPi - 0.0001
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("WrapAngle(-0.0001) = %v, want ~%v", got, want)
	}
}

func TestAngleDifferenceRange(t *testing.T) {
	cases := [][2]float64{
		{0, 0}, {0, math.Pi}, {0, math.Pi / 4}, {math.Pi / 4, 7 * math.Pi / 4},
	}
	for _, c := range cases {
		d := AngleDifference(c[0], c[1])
		if d < 0 || d > math.Pi+1e-9 {
			t.Errorf("AngleDifference(%v,%v) = %v, want in [0,pi]", c[0], c[1], d)
		}
	}
}

func TestAngleRotateConverges(t *testing.T) {
	start := 0.0
	end := math.Pi
	step := 0.1
	iterations := 0
	for AngleDifference(start, end) > 1e-9 && iterations < 1000 {
		start = AngleRotate(start, end, step)
		iterations++
	}
	if iterations >= 1000 {
		t.Fatal("AngleRotate did not converge")
	}
}

func TestSegmentsIntersectCross(t *testing.T) {
	if !SegmentsIntersect(0, 0, 10, 10, 0, 10, 10, 0) {
		t.Error("expected crossing segments to intersect")
	}
	if SegmentsIntersect(0, 0, 1, 0, 0, 5, 1, 5) {
		t.Error("expected parallel segments to not intersect")
	}
}

func TestKahanVsNaiveDrift(t *testing.T) {
	const n = 200000
	const dt = 1.0 / 30.0

	var k Kahan
	naive := 0.0
	for i := 0; i < n; i++ {
		k.Add(dt)
		naive += dt
	}

	exact := float64(n) * dt
	kahanErr := math.Abs(k.Sum() - exact)
	naiveErr := math.Abs(naive - exact)

	if kahanErr > naiveErr {
		t.Errorf("expected Kahan error (%v) <= naive error (%v)", kahanErr, naiveErr)
	}
}

func TestKahanAddSubtractReturnsToPrior(t *testing.T) {
	var k Kahan
	k.Add(1000.0)
	before := k.Sum()
	k.Add(0.1)
	k.Add(-0.1)
	after := k.Sum()
	if math.Abs(after-before) > 1e-9 {
		t.Errorf("Add(x); Add(-x) did not return to prior sum: before=%v after=%v", before, after)
	}
}

func TestDistanceHelpers(t *testing.T) {
	if got := DistanceSquared(0, 0, 3, 4); got != 25 {
		t.Errorf("DistanceSquared = %v, want 25", got)
	}
	if got := DistanceTo(0, 0, 3, 4); got != 5 {
		t.Errorf("DistanceTo = %v, want 5", got)
	}
}
