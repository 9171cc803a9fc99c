// Package core provides the fundamental primitives shared by the tinysine
// inference stack.
//
// This package defines the element types understood by the runtime, the affine
// quantization parameters attached to every tensor, and the Tensor handle: a
// fixed-shape, fixed-type view over bytes that either live in the read-only
// model artifact (weights, biases) or were carved from the interpreter's
// memory arena (activations, inputs, outputs).
//
// Key components:
//   - DType: element type tag with size and integer range helpers
//   - QuantParams: (scale, zero point) pair defining real ≈ (q - zp) × scale
//   - Tensor: handle with typed element accessors that never allocate
//   - Alignment helpers used by the arena
//
// Element accessors use explicit little-endian decoding so handles work the
// same whether the backing bytes are aligned arena memory or an embedded
// byte array compiled into flash.
package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// DType identifies the element type stored in a tensor.
type DType uint8

// Element types. Values follow the builtin numbering used by the artifact format.
const (
	DTypeInvalid DType = 0
	DTypeFloat32 DType = 1
	DTypeInt32   DType = 2
	DTypeInt8    DType = 9
)

// Size returns the width of one element in bytes, or 0 for unknown types.
func (d DType) Size() int {
	switch d {
	case DTypeFloat32, DTypeInt32:
		return 4
	case DTypeInt8:
		return 1
	default:
		return 0
	}
}

// Quantized reports whether values of this type carry affine quantization.
func (d DType) Quantized() bool {
	return d == DTypeInt8
}

// Range returns the representable integer range of a quantized storage type.
func (d DType) Range() (lo, hi int32) {
	switch d {
	case DTypeInt8:
		return math.MinInt8, math.MaxInt8
	case DTypeInt32:
		return math.MinInt32, math.MaxInt32
	default:
		return 0, 0
	}
}

func (d DType) String() string {
	switch d {
	case DTypeFloat32:
		return "float32"
	case DTypeInt32:
		return "int32"
	case DTypeInt8:
		return "int8"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// QuantParams is the affine mapping between real values and quantized integers.
//
//	real ≈ (quantized - ZeroPoint) × Scale
type QuantParams struct {
	Scale     float32
	ZeroPoint int32
}

// Valid reports whether the scale is a positive, finite number.
func (p QuantParams) Valid() bool {
	s := float64(p.Scale)
	return s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s)
}

// Tensor is a fixed-shape, fixed-type view into model or arena storage.
type Tensor struct {
	Type   DType
	Shape  []int32
	Params QuantParams
	Data   []byte
}

// Elements returns the product of the shape dimensions.
func (t *Tensor) Elements() int {
	n := 1
	for _, d := range t.Shape {
		n *= int(d)
	}
	return n
}

// Bytes returns the storage required by the tensor's shape and type.
func (t *Tensor) Bytes() int {
	return t.Elements() * t.Type.Size()
}

// Validate checks that the backing storage matches shape and type.
func (t *Tensor) Validate() error {
	if t == nil {
		return errors.New("tensor is nil")
	}
	if t.Type.Size() == 0 {
		return fmt.Errorf("unsupported tensor type %s", t.Type)
	}
	for _, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("invalid dimension %d in shape %v", d, t.Shape)
		}
	}
	if len(t.Data) != t.Bytes() {
		return fmt.Errorf("tensor storage is %d bytes, shape %v of %s needs %d", len(t.Data), t.Shape, t.Type, t.Bytes())
	}
	if t.Type.Quantized() && !t.Params.Valid() {
		return fmt.Errorf("quantized tensor has invalid scale %v", t.Params.Scale)
	}
	return nil
}

// Int8 returns element i of an int8 tensor.
func (t *Tensor) Int8(i int) int8 {
	return int8(t.Data[i])
}

// SetInt8 stores element i of an int8 tensor.
func (t *Tensor) SetInt8(i int, v int8) {
	t.Data[i] = byte(v)
}

// Int32 returns element i of an int32 tensor.
func (t *Tensor) Int32(i int) int32 {
	return int32(binary.LittleEndian.Uint32(t.Data[i*4:]))
}

// SetInt32 stores element i of an int32 tensor.
func (t *Tensor) SetInt32(i int, v int32) {
	binary.LittleEndian.PutUint32(t.Data[i*4:], uint32(v))
}

// Float32 returns element i of a float32 tensor.
func (t *Tensor) Float32(i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(t.Data[i*4:]))
}

// SetFloat32 stores element i of a float32 tensor.
func (t *Tensor) SetFloat32(i int, v float32) {
	binary.LittleEndian.PutUint32(t.Data[i*4:], math.Float32bits(v))
}

// Zero clears the tensor storage.
func (t *Tensor) Zero() {
	clear(t.Data)
}
