// Package clock is the loop's time source: elapsed time that never goes
// backward, and a period sleep that a context can interrupt.
package clock

import (
	"context"
	"time"
)

// Clock is a monotonic time source with a cancellable sleep.
type Clock interface {
	// Elapsed returns the time since the clock was created.
	Elapsed() time.Duration
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in
	// the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// sleeper reuses one timer so the per-cycle sleep does not allocate.
type sleeper struct {
	timer *time.Timer
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	if s.timer == nil {
		s.timer = time.NewTimer(d)
	} else {
		s.timer.Reset(d)
	}
	select {
	case <-ctx.Done():
		s.timer.Stop()
		return ctx.Err()
	case <-s.timer.C:
		return nil
	}
}

// Monotonic reads the Go runtime's monotonic clock.
type Monotonic struct {
	sleeper
	start time.Time
}

var _ Clock = (*Monotonic)(nil)

// NewMonotonic returns a clock whose zero is now.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

func (c *Monotonic) Elapsed() time.Duration {
	return time.Since(c.start)
}

// Boot reads the kernel's CLOCK_MONOTONIC directly where available, the
// same counter hardware timestamps and other processes see.
type Boot struct {
	sleeper
	start int64
	last  time.Duration
}

var _ Clock = (*Boot)(nil)

// NewBoot returns a clock whose zero is now.
func NewBoot() (*Boot, error) {
	start, err := monotonicNanos()
	if err != nil {
		return nil, err
	}
	return &Boot{start: start}, nil
}

// Elapsed never returns less than a previous call, even if the
// underlying read fails.
func (c *Boot) Elapsed() time.Duration {
	now, err := monotonicNanos()
	if err != nil {
		return c.last
	}
	c.last = max(c.last, time.Duration(now-c.start))
	return c.last
}
