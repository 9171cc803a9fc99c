package kernels

import (
	"fmt"

	"github.com/sbl8/tinysine/core"
	"github.com/sbl8/tinysine/model"
	"github.com/sbl8/tinysine/quant"
)

// Quantize returns the QUANTIZE kernel: float32 in, int8 out.
func Quantize() Registration {
	return Registration{
		Opcode:  model.OpQuantize,
		Prepare: prepareQuantize,
		Eval:    evalQuantize,
	}
}

// Dequantize returns the DEQUANTIZE kernel: int8 in, float32 out.
func Dequantize() Registration {
	return Registration{
		Opcode:  model.OpDequantize,
		Prepare: prepareDequantize,
		Eval:    evalDequantize,
	}
}

func prepareConvert(n *Node, from, to core.DType) error {
	if err := checkOperands(n, 1, 1, 1); err != nil {
		return err
	}
	in, out := n.Inputs[0], n.Outputs[0]
	if in.Type != from {
		return typeError(n, "input", in.Type)
	}
	if out.Type != to {
		return typeError(n, "output", out.Type)
	}
	if in.Elements() != out.Elements() {
		return fmt.Errorf("%w: %s input %v, output %v", ErrShapeMismatch, n.Opcode, in.Shape, out.Shape)
	}
	return nil
}

func prepareQuantize(n *Node) error {
	if err := prepareConvert(n, core.DTypeFloat32, core.DTypeInt8); err != nil {
		return err
	}
	if !n.Outputs[0].Params.Valid() {
		return fmt.Errorf("QUANTIZE output has invalid scale %v", n.Outputs[0].Params.Scale)
	}
	return nil
}

func evalQuantize(n *Node) error {
	in, out := n.Inputs[0], n.Outputs[0]
	for i, count := 0, in.Elements(); i < count; i++ {
		out.SetInt8(i, quant.Encode(in.Float32(i), out.Params))
	}
	return nil
}

func prepareDequantize(n *Node) error {
	return prepareConvert(n, core.DTypeInt8, core.DTypeFloat32)
}

func evalDequantize(n *Node) error {
	in, out := n.Inputs[0], n.Outputs[0]
	for i, count := 0, in.Elements(); i < count; i++ {
		out.SetFloat32(i, quant.Decode(in.Int8(i), in.Params))
	}
	return nil
}
