package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testClocks(t *testing.T) map[string]Clock {
	t.Helper()
	boot, err := NewBoot()
	if err != nil {
		t.Fatalf("NewBoot failed: %v", err)
	}
	return map[string]Clock{
		"monotonic": NewMonotonic(),
		"boot":      boot,
	}
}

func TestElapsedNeverGoesBackward(t *testing.T) {
	t.Parallel()
	for name, c := range testClocks(t) {
		prev := c.Elapsed()
		if prev < 0 {
			t.Errorf("%s: Elapsed() = %v", name, prev)
		}
		for i := 0; i < 1000; i++ {
			now := c.Elapsed()
			if now < prev {
				t.Fatalf("%s: Elapsed went from %v to %v", name, prev, now)
			}
			prev = now
		}
	}
}

func TestSleep(t *testing.T) {
	t.Parallel()
	for name, c := range testClocks(t) {
		before := c.Elapsed()
		for i := 0; i < 3; i++ {
			if err := c.Sleep(context.Background(), 5*time.Millisecond); err != nil {
				t.Fatalf("%s: Sleep failed: %v", name, err)
			}
		}
		if d := c.Elapsed() - before; d < 15*time.Millisecond {
			t.Errorf("%s: three 5ms sleeps took %v", name, d)
		}
		if err := c.Sleep(context.Background(), 0); err != nil {
			t.Errorf("%s: Sleep(0) failed: %v", name, err)
		}
	}
}

func TestSleepCancelled(t *testing.T) {
	t.Parallel()
	c := NewMonotonic()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := c.Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep() error = %v, want %v", err, context.Canceled)
	}
	if time.Since(start) > time.Minute {
		t.Error("Sleep ignored cancellation")
	}

	// A done context returns at once, even for a zero duration.
	if err := c.Sleep(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() on done context error = %v", err)
	}
}
