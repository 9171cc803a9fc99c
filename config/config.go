// Package config loads the sinectl configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the file sinectl reads when no -config flag is given.
const DefaultPath = "sinectl.yml"

// Actuator drivers.
const (
	DriverLog    = "log"
	DriverPeriph = "periph"
)

// Diagnostic outputs.
const (
	OutputStdout = "stdout"
	OutputSerial = "serial"
)

// Config is the sinectl configuration.
type Config struct {
	Loop        LoopConfig        `yaml:"loop"`
	Engine      EngineConfig      `yaml:"engine"`
	Actuator    ActuatorConfig    `yaml:"actuator"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

// LoopConfig controls cycle timing and the input sweep.
type LoopConfig struct {
	Period    time.Duration `yaml:"period"`     // e.g. "20ms"
	Rate      float64       `yaml:"rate"`       // radians per second
	MaxCycles uint64        `yaml:"max_cycles"` // 0 runs until stopped
}

// EngineConfig sizes the inference engine.
type EngineConfig struct {
	ArenaSize uint64 `yaml:"arena_size"`
	Stats     bool   `yaml:"stats"`
}

// ActuatorConfig selects the PWM output.
type ActuatorConfig struct {
	Driver      string `yaml:"driver"`       // log, periph
	Pin         string `yaml:"pin"`          // periph pin name, e.g. GPIO18
	FrequencyHz int64  `yaml:"frequency_hz"` // PWM carrier frequency
	Resolution  uint32 `yaml:"resolution"`   // duty-cycle steps
}

// DiagnosticsConfig selects where Pred/True lines go.
type DiagnosticsConfig struct {
	Output string `yaml:"output"` // stdout, serial
	Port   string `yaml:"port"`
	Baud   int    `yaml:"baud"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Loop: LoopConfig{
			Period: 20 * time.Millisecond,
			Rate:   1.57,
		},
		Engine: EngineConfig{
			ArenaSize: 8 * 1024,
		},
		Actuator: ActuatorConfig{
			Driver:      DriverLog,
			FrequencyHz: 1000,
			Resolution:  256,
		},
		Diagnostics: DiagnosticsConfig{
			Output: OutputStdout,
			Port:   "/dev/ttyACM0",
			Baud:   115200,
		},
	}
}

// Load reads a YAML configuration. Keys absent from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration from data and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&c)
	return &c, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	c, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return c, err
}

func applyDefaults(c *Config) {
	d := Default()
	if c.Loop.Period == 0 {
		c.Loop.Period = d.Loop.Period
	}
	if c.Loop.Rate == 0 {
		c.Loop.Rate = d.Loop.Rate
	}
	if c.Engine.ArenaSize == 0 {
		c.Engine.ArenaSize = d.Engine.ArenaSize
	}
	if c.Actuator.Driver == "" {
		c.Actuator.Driver = d.Actuator.Driver
	}
	if c.Actuator.FrequencyHz == 0 {
		c.Actuator.FrequencyHz = d.Actuator.FrequencyHz
	}
	if c.Actuator.Resolution == 0 {
		c.Actuator.Resolution = d.Actuator.Resolution
	}
	if c.Diagnostics.Output == "" {
		c.Diagnostics.Output = d.Diagnostics.Output
	}
	if c.Diagnostics.Port == "" {
		c.Diagnostics.Port = d.Diagnostics.Port
	}
	if c.Diagnostics.Baud == 0 {
		c.Diagnostics.Baud = d.Diagnostics.Baud
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Loop.Period <= 0:
		return fmt.Errorf("loop.period must be positive, got %v", c.Loop.Period)
	case !(c.Loop.Rate > 0):
		return fmt.Errorf("loop.rate must be positive, got %v", c.Loop.Rate)
	case c.Engine.ArenaSize < 64:
		return fmt.Errorf("engine.arena_size %d is too small", c.Engine.ArenaSize)
	case c.Actuator.Resolution < 2:
		return fmt.Errorf("actuator.resolution must be at least 2, got %d", c.Actuator.Resolution)
	case c.Actuator.FrequencyHz <= 0:
		return fmt.Errorf("actuator.frequency_hz must be positive, got %d", c.Actuator.FrequencyHz)
	}

	switch c.Actuator.Driver {
	case DriverLog:
	case DriverPeriph:
		if c.Actuator.Pin == "" {
			return errors.New("actuator.pin is required for the periph driver")
		}
	default:
		return fmt.Errorf("unknown actuator.driver %q (want %s or %s)", c.Actuator.Driver, DriverLog, DriverPeriph)
	}

	switch c.Diagnostics.Output {
	case OutputStdout:
	case OutputSerial:
		if c.Diagnostics.Port == "" {
			return errors.New("diagnostics.port is required for serial output")
		}
		if c.Diagnostics.Baud <= 0 {
			return fmt.Errorf("diagnostics.baud must be positive, got %d", c.Diagnostics.Baud)
		}
	default:
		return fmt.Errorf("unknown diagnostics.output %q (want %s or %s)", c.Diagnostics.Output, OutputStdout, OutputSerial)
	}
	return nil
}
