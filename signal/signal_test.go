package signal

import (
	"math"
	"testing"
	"time"
)

func TestSampleRange(t *testing.T) {
	t.Parallel()
	g := New(DefaultRate)

	tests := []time.Duration{
		-time.Second,
		0,
		time.Millisecond,
		20 * time.Millisecond,
		4 * time.Second,
		time.Hour,
		365 * 24 * time.Hour,
		math.MaxInt64,
	}
	for _, d := range tests {
		x := g.Sample(d)
		if x < 0 || x >= 2*math.Pi || math.IsNaN(x) {
			t.Errorf("Sample(%v) = %v, outside [0, 2π)", d, x)
		}
	}
	if x := g.Sample(-time.Second); x != 0 {
		t.Errorf("Sample(-1s) = %v, want 0", x)
	}
}

func TestSampleIsPeriodic(t *testing.T) {
	t.Parallel()
	g := New(DefaultRate)
	period := g.Period()

	for _, d := range []time.Duration{100 * time.Millisecond, 1234 * time.Millisecond, 3 * time.Second} {
		a, b := g.Sample(d), g.Sample(d+period)
		// Period is truncated to a whole nanosecond.
		diff := math.Abs(a - b)
		diff = math.Min(diff, 2*math.Pi-diff)
		if diff > 1e-6 {
			t.Errorf("Sample(%v) = %v, Sample(+period) = %v", d, a, b)
		}
	}
}

func TestSampleLinearWithinSweep(t *testing.T) {
	t.Parallel()
	g := New(2)
	if got := g.Sample(time.Second); math.Abs(got-2) > 1e-12 {
		t.Errorf("Sample(1s) = %v, want 2", got)
	}
	if got := g.Sample(4 * time.Second); math.Abs(got-(8-2*math.Pi)) > 1e-12 {
		t.Errorf("Sample(4s) = %v, want %v", got, 8-2*math.Pi)
	}
}

func TestNewRejectsBadRate(t *testing.T) {
	t.Parallel()
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if g := New(r); g.Rate != DefaultRate {
			t.Errorf("New(%v).Rate = %v, want %v", r, g.Rate, DefaultRate)
		}
	}
}

func TestPeriod(t *testing.T) {
	t.Parallel()
	p := New(DefaultRate).Period()
	if p < 4*time.Second-10*time.Millisecond || p > 4*time.Second+10*time.Millisecond {
		t.Errorf("Period() = %v, want about 4s", p)
	}
}
