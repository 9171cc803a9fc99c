// Package compiler builds the sine model artifact.
//
// The network is y = Σ wⱼ·relu(x − kⱼ), a piecewise-linear interpolant of
// sin(x) over [0, 2π) with one hidden unit per knot. Knots are spaced evenly
// and snapped to the input quantization grid; output weights are fitted
// greedily so the interpolant passes through sin at every knot.
//
// Every scale in the quantized graph is a power of two, so the integer
// kernels reproduce the fitted function exactly up to output rounding.
//
// Compilation pipeline:
//  1. Fit knots and weights (FitSine)
//  2. Lay out tensors and operators for the requested variant
//  3. Validate the graph
//  4. Emit the binary artifact, optionally wrapped in Go source
//
// Variants:
//   - int8:    int8 input and output, as deployed on the microcontroller
//   - hybrid:  float32 input and output around an int8 core (QUANTIZE/DEQUANTIZE)
//   - float32: the unquantized reference network
package compiler

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/sbl8/tinysine/model"
)

// Quantization parameters of the int8 graph.
const (
	InputScale      = 1.0 / 32
	InputZeroPoint  = -128
	HiddenScale     = 1.0 / 32
	HiddenZeroPoint = -128
	Weight1Scale    = 1.0 / 64
	Weight2Scale    = 1.0 / 128
	OutputScale     = 1.0 / 64
	OutputZeroPoint = 0

	// weight1 is the single hidden-layer weight, 1.0 in Weight1Scale units.
	weight1 = 64
)

// Variant selects the artifact's tensor types.
type Variant int

const (
	VariantInt8 Variant = iota
	VariantHybrid
	VariantFloat32
)

func (v Variant) String() string {
	switch v {
	case VariantInt8:
		return "int8"
	case VariantHybrid:
		return "hybrid"
	case VariantFloat32:
		return "float32"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant is the inverse of Variant.String.
func ParseVariant(s string) (Variant, error) {
	for _, v := range []Variant{VariantInt8, VariantHybrid, VariantFloat32} {
		if strings.EqualFold(s, v.String()) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown model variant %q (want int8, hybrid or float32)", s)
}

// CompileOptions configures the compilation process
type CompileOptions struct {
	Variant Variant
	Hidden  int    // Hidden units, one per knot
	Version uint32 // Schema version written to the header
	Verbose bool   // Enable verbose output
}

// DefaultOptions provides the configuration of the deployed model.
func DefaultOptions() CompileOptions {
	return CompileOptions{
		Variant: VariantInt8,
		Hidden:  16,
		Version: model.SchemaVersion,
	}
}

// Fit is the fitted interpolant. Knots and Weights are in quantized units:
// knots on the input grid (InputScale), weights in Weight2Scale.
type Fit struct {
	Knots   []int32
	End     int32
	Weights []int8
}

// FitSine places hidden knots evenly over [0, 2π) and fits one output
// weight per knot so the interpolant matches sin at the following knot.
func FitSine(hidden int) Fit {
	f := Fit{
		Knots:   make([]int32, hidden),
		Weights: make([]int8, hidden),
	}
	for j := range f.Knots {
		f.Knots[j] = int32(math.Round(float64(j) * (2 * math.Pi / float64(hidden)) / InputScale))
	}
	f.End = int32(math.Round(2 * math.Pi / InputScale))

	for j := range f.Weights {
		g := f.End
		if j+1 < hidden {
			g = f.Knots[j+1]
		}
		target := math.Sin(float64(g) * InputScale)
		current := f.eval(g, j)
		width := float64(g-f.Knots[j]) * HiddenScale
		q := math.Round((target - current) / width / Weight2Scale)
		f.Weights[j] = int8(max(-127, min(127, q)))
	}
	return f
}

// eval returns the interpolant at grid point g using the first n units.
func (f *Fit) eval(g int32, n int) float64 {
	var acc int64
	for i := 0; i < n; i++ {
		acc += int64(max(0, g-f.Knots[i])) * int64(f.Weights[i])
	}
	return float64(acc) * HiddenScale * Weight2Scale
}

// Eval returns the fitted interpolant at x in real units.
func (f *Fit) Eval(x float64) float64 {
	var y float64
	for i, k := range f.Knots {
		y += max(0, x-float64(k)*InputScale) * float64(f.Weights[i]) * Weight2Scale
	}
	return y
}

// CompileSine builds the sine model for opts.
func CompileSine(opts CompileOptions) (*model.Model, error) {
	if opts.Hidden < 2 || opts.Hidden > 64 {
		return nil, fmt.Errorf("hidden units %d out of range [2, 64]", opts.Hidden)
	}
	fit := FitSine(opts.Hidden)

	var m *model.Model
	switch opts.Variant {
	case VariantInt8:
		m = buildInt8(fit)
	case VariantHybrid:
		m = buildHybrid(fit)
	case VariantFloat32:
		m = buildFloat32(fit)
	default:
		return nil, fmt.Errorf("unknown variant %s", opts.Variant)
	}
	m.Version = opts.Version

	if err := validateGraph(m); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return m, nil
}

// Compile builds the model and writes it to out. A .go suffix on out emits
// Go source for package sinemodel instead of the raw artifact.
func Compile(out string, opts CompileOptions) error {
	if opts.Verbose {
		fmt.Printf("Compiling %s sine model (%d hidden units) -> %s\n", opts.Variant, opts.Hidden, out)
	}

	m, err := CompileSine(opts)
	if err != nil {
		return err
	}
	data, err := m.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(out, ".go") {
		err = WriteGoSource(f, "sinemodel", opts, data)
	} else {
		_, err = f.Write(data)
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if opts.Verbose {
		fmt.Printf("Wrote %d bytes: %d tensors, %d operators, %d buffers\n", len(data), len(m.Tensors), len(m.Operators), len(m.Buffers))
	}
	return f.Close()
}

// validateGraph checks structure plus the constraints the deployed runtime relies on.
func validateGraph(m *model.Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if len(m.Inputs) != 1 || len(m.Outputs) != 1 {
		return fmt.Errorf("model must have exactly one input and one output, has %d and %d", len(m.Inputs), len(m.Outputs))
	}
	for _, idx := range []uint16{m.Inputs[0], m.Outputs[0]} {
		t := &m.Tensors[idx]
		if elements(t.Shape) != 1 {
			return fmt.Errorf("graph tensor %d has shape %v, want a single element", idx, t.Shape)
		}
	}
	return nil
}

func elements(shape []int32) int {
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}
