package actuator

import (
	"fmt"

	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// DefaultFrequency is the PWM carrier used when none is configured.
const DefaultFrequency = 1 * physic.KiloHertz

// PeriphChannel drives a GPIO pin through the periph.io host drivers. The
// pin must support hardware PWM.
type PeriphChannel struct {
	pin     gpio.PinIO
	freq    physic.Frequency
	top     uint32
	level   uint32
	enabled bool
}

var _ Channel = (*PeriphChannel)(nil)

// OpenPeriph initializes the registered periph drivers and looks up the
// pin by name, e.g. "GPIO18" or "PWM0".
func OpenPeriph(name string, freq physic.Frequency) (*PeriphChannel, error) {
	if _, err := driverreg.Init(); err != nil {
		return nil, fmt.Errorf("initializing periph drivers: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return NewPeriphChannel(pin, freq), nil
}

// NewPeriphChannel wraps an already resolved pin.
func NewPeriphChannel(pin gpio.PinIO, freq physic.Frequency) *PeriphChannel {
	if freq <= 0 {
		freq = DefaultFrequency
	}
	return &PeriphChannel{pin: pin, freq: freq}
}

func (c *PeriphChannel) Configure(top uint32) error {
	if top == 0 {
		return fmt.Errorf("pwm top must be positive")
	}
	c.top = top
	return nil
}

func (c *PeriphChannel) Set(level uint32) error {
	if c.top == 0 {
		return fmt.Errorf("pwm %s not configured", c.pin)
	}
	c.level = min(level, c.top)
	if !c.enabled {
		return nil
	}
	return c.pin.PWM(c.duty(), c.freq)
}

func (c *PeriphChannel) Enable(on bool) error {
	c.enabled = on
	if !on {
		return c.pin.Out(gpio.Low)
	}
	return c.pin.PWM(c.duty(), c.freq)
}

// duty scales the level from [0, top] to periph's [0, gpio.DutyMax].
func (c *PeriphChannel) duty() gpio.Duty {
	return gpio.Duty(uint64(c.level) * uint64(gpio.DutyMax) / uint64(c.top))
}

// Halt stops the output and releases the pin.
func (c *PeriphChannel) Halt() error {
	c.enabled = false
	return c.pin.Halt()
}
