package kernels

import (
	"fmt"

	"github.com/sbl8/tinysine/core"
	"github.com/sbl8/tinysine/model"
)

// FullyConnected returns the FULLY_CONNECTED kernel.
//
// Operands: input [batches, depth], weights [units, depth], optional bias
// [units]; output [batches, units]. Quantized graphs use int8 input, weights
// and output with an int32 bias whose scale is input.scale × weights.scale.
func FullyConnected() Registration {
	return Registration{
		Opcode:  model.OpFullyConnected,
		Prepare: prepareFullyConnected,
		Eval:    evalFullyConnected,
	}
}

func prepareFullyConnected(n *Node) error {
	if err := checkOperands(n, 2, 3, 1); err != nil {
		return err
	}
	in, w, out := n.Inputs[0], n.Inputs[1], n.Outputs[0]
	var bias *core.Tensor
	if len(n.Inputs) == 3 {
		bias = n.Inputs[2]
	}

	if len(w.Shape) != 2 {
		return fmt.Errorf("%w: weights rank %d, want 2", ErrShapeMismatch, len(w.Shape))
	}
	d := &n.Data
	d.Units, d.Depth = int(w.Shape[0]), int(w.Shape[1])
	if in.Elements()%d.Depth != 0 {
		return fmt.Errorf("%w: input has %d elements, not a multiple of depth %d", ErrShapeMismatch, in.Elements(), d.Depth)
	}
	d.Batches = in.Elements() / d.Depth
	if out.Elements() != d.Batches*d.Units {
		return fmt.Errorf("%w: output has %d elements, want %d×%d", ErrShapeMismatch, out.Elements(), d.Batches, d.Units)
	}
	if bias != nil && bias.Elements() != d.Units {
		return fmt.Errorf("%w: bias has %d elements, want %d", ErrShapeMismatch, bias.Elements(), d.Units)
	}

	switch in.Type {
	case core.DTypeInt8:
		if w.Type != core.DTypeInt8 {
			return typeError(n, "weights", w.Type)
		}
		if out.Type != core.DTypeInt8 {
			return typeError(n, "output", out.Type)
		}
		if bias != nil && bias.Type != core.DTypeInt32 {
			return typeError(n, "bias", bias.Type)
		}
		real := float64(in.Params.Scale) * float64(w.Params.Scale) / float64(out.Params.Scale)
		d.Multiplier, d.Shift = QuantizeMultiplier(real)
		d.InputOffset = -in.Params.ZeroPoint
		d.WeightOffset = -w.Params.ZeroPoint
		d.OutputOffset = out.Params.ZeroPoint
		d.ActMin, d.ActMax = activationRange(n.Activation, out)
	case core.DTypeFloat32:
		if w.Type != core.DTypeFloat32 {
			return typeError(n, "weights", w.Type)
		}
		if out.Type != core.DTypeFloat32 {
			return typeError(n, "output", out.Type)
		}
		if bias != nil && bias.Type != core.DTypeFloat32 {
			return typeError(n, "bias", bias.Type)
		}
	default:
		return typeError(n, "input", in.Type)
	}
	return nil
}

func evalFullyConnected(n *Node) error {
	if n.Inputs[0].Type == core.DTypeInt8 {
		fullyConnectedInt8(n)
	} else {
		fullyConnectedFloat32(n)
	}
	return nil
}

func fullyConnectedInt8(n *Node) {
	in, w, out := n.Inputs[0], n.Inputs[1], n.Outputs[0]
	var bias *core.Tensor
	if len(n.Inputs) == 3 {
		bias = n.Inputs[2]
	}
	d := &n.Data

	for b := 0; b < d.Batches; b++ {
		for u := 0; u < d.Units; u++ {
			var acc int32
			for k := 0; k < d.Depth; k++ {
				x := int32(in.Int8(b*d.Depth+k)) + d.InputOffset
				y := int32(w.Int8(u*d.Depth+k)) + d.WeightOffset
				acc += x * y
			}
			if bias != nil {
				acc += bias.Int32(u)
			}
			acc = MultiplyByQuantizedMultiplier(acc, d.Multiplier, d.Shift) + d.OutputOffset
			acc = max(d.ActMin, min(d.ActMax, acc))
			out.SetInt8(b*d.Units+u, int8(acc))
		}
	}
}

func fullyConnectedFloat32(n *Node) {
	in, w, out := n.Inputs[0], n.Inputs[1], n.Outputs[0]
	var bias *core.Tensor
	if len(n.Inputs) == 3 {
		bias = n.Inputs[2]
	}
	d := &n.Data

	for b := 0; b < d.Batches; b++ {
		for u := 0; u < d.Units; u++ {
			var acc float32
			for k := 0; k < d.Depth; k++ {
				acc += in.Float32(b*d.Depth+k) * w.Float32(u*d.Depth+k)
			}
			if bias != nil {
				acc += bias.Float32(u)
			}
			if n.Activation == model.ActRelu {
				acc = max(0, acc)
			}
			out.SetFloat32(b*d.Units+u, acc)
		}
	}
}
