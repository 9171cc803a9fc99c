// Package quant converts scalars between the real domain and a tensor's
// quantized integer domain.
//
// The mapping is affine: q = round(real / scale) + zero_point, saturated to
// the storage type's range, and real = (q - zero_point) × scale. Rounding is
// half away from zero. Which mapping applies to a tensor is decided once, by
// ForTensor, from the tensor's declared element type; the resulting Codec is
// then used every cycle without re-inspecting the type.
package quant

import (
	"errors"
	"fmt"
	"math"

	"github.com/sbl8/tinysine/core"
)

var ErrUnsupportedType = errors.New("tensor type has no scalar codec")

// Encode maps real into the int8 domain, saturating at [-128, 127].
// NaN encodes to the zero point.
func Encode(real float32, p core.QuantParams) int8 {
	return int8(EncodeRange(real, p, math.MinInt8, math.MaxInt8))
}

// EncodeRange maps real into the integer domain [lo, hi], saturating at the bounds.
func EncodeRange(real float32, p core.QuantParams, lo, hi int32) int32 {
	if math.IsNaN(float64(real)) {
		return clamp(p.ZeroPoint, lo, hi)
	}
	v := math.Round(float64(real)/float64(p.Scale)) + float64(p.ZeroPoint)
	if v <= float64(lo) {
		return lo
	}
	if v >= float64(hi) {
		return hi
	}
	return int32(v)
}

// Decode maps an int8 value back into the real domain.
func Decode(q int8, p core.QuantParams) float32 {
	return DecodeInt32(int32(q), p)
}

// DecodeInt32 maps a quantized value of any width back into the real domain.
func DecodeInt32(q int32, p core.QuantParams) float32 {
	return float32(q-p.ZeroPoint) * p.Scale
}

func clamp(v, lo, hi int32) int32 {
	return max(lo, min(hi, v))
}

// Codec reads and writes the scalar held by a tensor handle in real units.
type Codec interface {
	// Store writes real into element 0 of t.
	Store(t *core.Tensor, real float32)
	// Load reads element 0 of t as a real value.
	Load(t *core.Tensor) float32
}

// Quantized is the codec for int8 tensors carrying affine parameters.
type Quantized struct {
	Params core.QuantParams
}

func (c Quantized) Store(t *core.Tensor, real float32) {
	t.SetInt8(0, Encode(real, c.Params))
}

func (c Quantized) Load(t *core.Tensor) float32 {
	return Decode(t.Int8(0), c.Params)
}

func (c Quantized) String() string {
	return fmt.Sprintf("quantized(scale=%g, zero_point=%d)", c.Params.Scale, c.Params.ZeroPoint)
}

// FloatingPoint is the identity codec for float32 tensors.
type FloatingPoint struct{}

func (FloatingPoint) Store(t *core.Tensor, real float32) {
	t.SetFloat32(0, real)
}

func (FloatingPoint) Load(t *core.Tensor) float32 {
	return t.Float32(0)
}

func (FloatingPoint) String() string {
	return "float32"
}

// ForTensor selects the codec matching the tensor's declared element type.
func ForTensor(t *core.Tensor) (Codec, error) {
	if t == nil {
		return nil, errors.New("tensor is nil")
	}
	if len(t.Data) < t.Type.Size() || t.Type.Size() == 0 {
		return nil, fmt.Errorf("%w: %s tensor with %d bytes", ErrUnsupportedType, t.Type, len(t.Data))
	}
	switch t.Type {
	case core.DTypeInt8:
		if !t.Params.Valid() {
			return nil, fmt.Errorf("int8 tensor has invalid scale %v", t.Params.Scale)
		}
		return Quantized{Params: t.Params}, nil
	case core.DTypeFloat32:
		return FloatingPoint{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t.Type)
	}
}
