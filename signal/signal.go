// Package signal produces the model input: a phase that sweeps [0, 2π)
// at a fixed angular rate as elapsed time grows.
package signal

import (
	"math"
	"time"
)

// DefaultRate sweeps the full input domain in about four seconds.
const DefaultRate = 1.57

// Generator maps elapsed time to a phase in [0, 2π).
type Generator struct {
	// Rate is the angular rate in radians per second.
	Rate float64
}

// New returns a generator with the given rate, or DefaultRate if rate is
// not a positive finite number.
func New(rate float64) Generator {
	if !(rate > 0) || math.IsInf(rate, 0) {
		rate = DefaultRate
	}
	return Generator{Rate: rate}
}

// Sample returns (elapsed × Rate) mod 2π. Negative elapsed time is treated
// as zero. The result is always in [0, 2π) regardless of how large elapsed
// grows.
func (g Generator) Sample(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	x := math.Mod(elapsed.Seconds()*g.Rate, 2*math.Pi)
	// Mod can return exactly 2π after rounding in the product.
	if x >= 2*math.Pi || x < 0 {
		return 0
	}
	return x
}

// Period returns the time one full sweep takes.
func (g Generator) Period() time.Duration {
	return time.Duration(2 * math.Pi / g.Rate * float64(time.Second))
}

// Reference returns sin(x), the value the model approximates.
func Reference(x float64) float64 {
	return math.Sin(x)
}
