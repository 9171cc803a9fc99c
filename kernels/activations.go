package kernels

import (
	"fmt"

	"github.com/sbl8/tinysine/core"
	"github.com/sbl8/tinysine/model"
)

// Relu returns the RELU kernel: max(0, x), element-wise.
func Relu() Registration {
	return Registration{
		Opcode:  model.OpRelu,
		Prepare: prepareRelu,
		Eval:    evalRelu,
	}
}

func prepareRelu(n *Node) error {
	if err := checkOperands(n, 1, 1, 1); err != nil {
		return err
	}
	in, out := n.Inputs[0], n.Outputs[0]
	if in.Type != out.Type {
		return typeError(n, "output", out.Type)
	}
	if in.Elements() != out.Elements() {
		return fmt.Errorf("%w: relu input %v, output %v", ErrShapeMismatch, in.Shape, out.Shape)
	}

	switch in.Type {
	case core.DTypeInt8:
		d := &n.Data
		d.Multiplier, d.Shift = QuantizeMultiplier(float64(in.Params.Scale) / float64(out.Params.Scale))
		d.InputOffset = in.Params.ZeroPoint
		d.OutputOffset = out.Params.ZeroPoint
		d.ActMin, d.ActMax = activationRange(model.ActRelu, out)
	case core.DTypeFloat32:
	default:
		return typeError(n, "input", in.Type)
	}
	return nil
}

func evalRelu(n *Node) error {
	in, out := n.Inputs[0], n.Outputs[0]
	count := in.Elements()

	if in.Type == core.DTypeFloat32 {
		for i := 0; i < count; i++ {
			out.SetFloat32(i, max(0, in.Float32(i)))
		}
		return nil
	}

	d := &n.Data
	for i := 0; i < count; i++ {
		v := int32(in.Int8(i)) - d.InputOffset
		v = d.OutputOffset + MultiplyByQuantizedMultiplier(v, d.Multiplier, d.Shift)
		out.SetInt8(i, int8(max(d.ActMin, min(d.ActMax, v))))
	}
	return nil
}
