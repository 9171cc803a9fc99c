package compiler

import (
	"encoding/binary"
	"math"

	"github.com/sbl8/tinysine/core"
	"github.com/sbl8/tinysine/model"
)

// Tensor indices shared by every variant.
const (
	tInput = iota
	tWeights1
	tBias1
	tHidden
	tRelu
	tWeights2
	tBias2
	tOutput
	// hybrid only
	tFloatInput
	tFloatOutput
)

func int8Bytes(v []int8) []byte {
	b := make([]byte, len(v))
	for i, x := range v {
		b[i] = byte(x)
	}
	return b
}

func int32Bytes(v []int32) []byte {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(x))
	}
	return b
}

func float32Bytes(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(x))
	}
	return b
}

func layers() []model.Operator {
	return []model.Operator{
		{Opcode: model.OpFullyConnected, Inputs: []uint16{tInput, tWeights1, tBias1}, Outputs: []uint16{tHidden}},
		{Opcode: model.OpRelu, Inputs: []uint16{tHidden}, Outputs: []uint16{tRelu}},
		{Opcode: model.OpFullyConnected, Inputs: []uint16{tRelu, tWeights2, tBias2}, Outputs: []uint16{tOutput}},
	}
}

func buildInt8(fit Fit) *model.Model {
	h := int32(len(fit.Knots))
	w1 := make([]int8, h)
	b1 := make([]int32, h)
	for i, k := range fit.Knots {
		w1[i] = weight1
		// bias scale is InputScale×Weight1Scale, so a knot of k input steps is k×weight1.
		b1[i] = -k * weight1
	}

	in := core.QuantParams{Scale: InputScale, ZeroPoint: InputZeroPoint}
	hidden := core.QuantParams{Scale: HiddenScale, ZeroPoint: HiddenZeroPoint}
	return &model.Model{
		Tensors: []model.Tensor{
			tInput:    {Type: core.DTypeInt8, Shape: []int32{1, 1}, Buffer: model.NoBuffer, Params: in},
			tWeights1: {Type: core.DTypeInt8, Shape: []int32{h, 1}, Buffer: 0, Params: core.QuantParams{Scale: Weight1Scale}},
			tBias1:    {Type: core.DTypeInt32, Shape: []int32{h}, Buffer: 1, Params: core.QuantParams{Scale: InputScale * Weight1Scale}},
			tHidden:   {Type: core.DTypeInt8, Shape: []int32{1, h}, Buffer: model.NoBuffer, Params: hidden},
			tRelu:     {Type: core.DTypeInt8, Shape: []int32{1, h}, Buffer: model.NoBuffer, Params: hidden},
			tWeights2: {Type: core.DTypeInt8, Shape: []int32{1, h}, Buffer: 2, Params: core.QuantParams{Scale: Weight2Scale}},
			tBias2:    {Type: core.DTypeInt32, Shape: []int32{1}, Buffer: 3, Params: core.QuantParams{Scale: HiddenScale * Weight2Scale}},
			tOutput:   {Type: core.DTypeInt8, Shape: []int32{1, 1}, Buffer: model.NoBuffer, Params: core.QuantParams{Scale: OutputScale, ZeroPoint: OutputZeroPoint}},
		},
		Operators: layers(),
		Buffers:   [][]byte{int8Bytes(w1), int32Bytes(b1), int8Bytes(fit.Weights), int32Bytes([]int32{0})},
		Inputs:    []uint16{tInput},
		Outputs:   []uint16{tOutput},
	}
}

// buildHybrid wraps the int8 graph with QUANTIZE and DEQUANTIZE so callers
// exchange float32 values.
func buildHybrid(fit Fit) *model.Model {
	m := buildInt8(fit)
	m.Tensors = append(m.Tensors,
		model.Tensor{Type: core.DTypeFloat32, Shape: []int32{1, 1}, Buffer: model.NoBuffer},
		model.Tensor{Type: core.DTypeFloat32, Shape: []int32{1, 1}, Buffer: model.NoBuffer},
	)
	ops := []model.Operator{{Opcode: model.OpQuantize, Inputs: []uint16{tFloatInput}, Outputs: []uint16{tInput}}}
	ops = append(ops, m.Operators...)
	m.Operators = append(ops, model.Operator{Opcode: model.OpDequantize, Inputs: []uint16{tOutput}, Outputs: []uint16{tFloatOutput}})
	m.Inputs = []uint16{tFloatInput}
	m.Outputs = []uint16{tFloatOutput}
	return m
}

func buildFloat32(fit Fit) *model.Model {
	h := int32(len(fit.Knots))
	w1 := make([]float32, h)
	b1 := make([]float32, h)
	w2 := make([]float32, h)
	for i, k := range fit.Knots {
		w1[i] = 1
		b1[i] = -float32(k) * InputScale
		w2[i] = float32(fit.Weights[i]) * Weight2Scale
	}

	f32 := func(shape []int32, buffer uint16) model.Tensor {
		return model.Tensor{Type: core.DTypeFloat32, Shape: shape, Buffer: buffer}
	}
	return &model.Model{
		Tensors: []model.Tensor{
			tInput:    f32([]int32{1, 1}, model.NoBuffer),
			tWeights1: f32([]int32{h, 1}, 0),
			tBias1:    f32([]int32{h}, 1),
			tHidden:   f32([]int32{1, h}, model.NoBuffer),
			tRelu:     f32([]int32{1, h}, model.NoBuffer),
			tWeights2: f32([]int32{1, h}, 2),
			tBias2:    f32([]int32{1}, 3),
			tOutput:   f32([]int32{1, 1}, model.NoBuffer),
		},
		Operators: layers(),
		Buffers:   [][]byte{float32Bytes(w1), float32Bytes(b1), float32Bytes(w2), float32Bytes([]float32{0})},
		Inputs:    []uint16{tInput},
		Outputs:   []uint16{tOutput},
	}
}
