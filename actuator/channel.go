package actuator

import (
	"fmt"
	"sync/atomic"

	"k8s.io/klog/v2"
)

// Channel is a PWM output.
type Channel interface {
	// Configure sets the counter top, the highest level Set accepts.
	Configure(top uint32) error
	// Set updates the level in [0, top]. Called every cycle; must not allocate.
	Set(level uint32) error
	// Enable starts or stops the output.
	Enable(on bool) error
}

// Bringup configures ch for the given resolution, drives it to level zero
// and enables it.
func Bringup(ch Channel, resolution uint32) error {
	if resolution < 2 {
		return fmt.Errorf("pwm resolution %d too small", resolution)
	}
	if err := ch.Configure(resolution - 1); err != nil {
		return fmt.Errorf("configuring pwm: %w", err)
	}
	if err := ch.Set(0); err != nil {
		return fmt.Errorf("setting initial pwm level: %w", err)
	}
	if err := ch.Enable(true); err != nil {
		return fmt.Errorf("enabling pwm: %w", err)
	}
	return nil
}

// LogChannel is a Channel with no hardware behind it. It keeps the last
// level and logs every change at verbosity 4.
type LogChannel struct {
	log     klog.Logger
	top     atomic.Uint32
	level   atomic.Uint32
	enabled atomic.Bool
}

var _ Channel = (*LogChannel)(nil)

// NewLogChannel returns a channel that reports to log.
func NewLogChannel(log klog.Logger) *LogChannel {
	return &LogChannel{log: log.WithName("pwm")}
}

func (c *LogChannel) Configure(top uint32) error {
	c.top.Store(top)
	c.log.V(2).Info("configured", "top", top)
	return nil
}

func (c *LogChannel) Set(level uint32) error {
	if top := c.top.Load(); level > top {
		return fmt.Errorf("pwm level %d above top %d", level, top)
	}
	if c.level.Swap(level) != level {
		if v := c.log.V(4); v.Enabled() {
			v.Info("level", "level", level)
		}
	}
	return nil
}

func (c *LogChannel) Enable(on bool) error {
	c.enabled.Store(on)
	c.log.V(2).Info("enable", "on", on)
	return nil
}

// Level returns the last level written.
func (c *LogChannel) Level() uint32 {
	return c.level.Load()
}

// Enabled reports whether the output is on.
func (c *LogChannel) Enabled() bool {
	return c.enabled.Load()
}
