//go:build tinygo

package main

import (
	"fmt"
	"machine"

	"github.com/sparques/pwm"

	"github.com/sbl8/tinysine/actuator"
)

// TinyGoChannel drives a microcontroller pin from its PWM slice.
type TinyGoChannel struct {
	pin    machine.Pin
	pgroup pwm.Group
	ch     uint8
	period uint64
	top    uint32
	level  uint32
	on     bool
}

var _ actuator.Channel = (*TinyGoChannel)(nil)

// NewTinyGoChannel claims the PWM slice behind pin. period is the PWM
// period in nanoseconds.
func NewTinyGoChannel(pin machine.Pin, period uint64) (*TinyGoChannel, error) {
	pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
	pgroup := pwm.Get(pin)
	if pgroup == nil {
		return nil, fmt.Errorf("pin %d has no pwm", pin)
	}
	return &TinyGoChannel{pin: pin, pgroup: pgroup, period: period}, nil
}

func (c *TinyGoChannel) Configure(top uint32) error {
	if err := c.pgroup.Configure(machine.PWMConfig{Period: c.period}); err != nil {
		return err
	}
	ch, err := c.pgroup.Channel(c.pin)
	if err != nil {
		return err
	}
	c.ch, c.top = ch, top
	return nil
}

func (c *TinyGoChannel) Set(level uint32) error {
	c.level = min(level, c.top)
	if c.on {
		c.pgroup.Set(c.ch, c.scaled())
	}
	return nil
}

func (c *TinyGoChannel) Enable(on bool) error {
	c.on = on
	if on {
		c.pgroup.Set(c.ch, c.scaled())
	} else {
		c.pgroup.Set(c.ch, 0)
	}
	return nil
}

// scaled maps the level from [0, top] onto the slice's counter range.
func (c *TinyGoChannel) scaled() uint32 {
	if c.top == 0 {
		return 0
	}
	return uint32(uint64(c.level) * uint64(c.pgroup.Top()) / uint64(c.top))
}
