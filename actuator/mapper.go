// Package actuator drives the PWM output from the model prediction.
//
// The mapping from prediction to level lives in Mapper; a Channel is the
// hardware (or stand-in) that receives the level. Backends:
//   - LogChannel: records and logs levels, for hosts without PWM hardware
//   - PeriphChannel: a Linux GPIO pin through periph.io
//
// The microcontroller backend lives with the firmware in cmd/sinefw.
package actuator

import "math"

// Resolution is the number of duty-cycle steps of the PWM channel.
const Resolution = 256

// Mapper maps a prediction in [-1, 1] linearly onto the duty-cycle range
// [0, Top], rounding half away from zero and clamping out-of-range input.
type Mapper struct {
	Top uint32
}

// NewMapper returns a mapper for a channel with resolution steps.
func NewMapper(resolution uint32) Mapper {
	return Mapper{Top: max(resolution, 2) - 1}
}

// Duty returns round((y + 1) × Top / 2), clamped to [0, Top]. NaN maps to 0.
func (m Mapper) Duty(y float32) uint32 {
	if math.IsNaN(float64(y)) {
		return 0
	}
	v := math.Round((float64(y) + 1) * float64(m.Top) / 2)
	if v <= 0 {
		return 0
	}
	if v >= float64(m.Top) {
		return m.Top
	}
	return uint32(v)
}

// ToDutyCycle maps y onto [0, 255]: -1 gives 0, 0 gives 128, 1 gives 255.
func ToDutyCycle(y float32) int {
	return int(Mapper{Top: Resolution - 1}.Duty(y))
}
