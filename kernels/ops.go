// Package kernels provides the operator kernels executed by the interpreter.
//
// Each kernel is a Registration: a Prepare step run once while tensors are
// allocated, which validates operand types and shapes and precomputes
// everything the hot path needs into the node's OpData, and an Eval step run
// on every invoke, which must not allocate.
//
// Available operations:
//   - FULLY_CONNECTED: int8 with int32 bias and fixed-point requantization, or float32
//   - RELU: int8 (with requantization between operand scales) or float32
//   - QUANTIZE: float32 to int8
//   - DEQUANTIZE: int8 to float32
//
// Quantized arithmetic follows the usual integer-only inference scheme: real
// multipliers are folded into a 31-bit fixed-point multiplier and a power-of-two
// shift (see QuantizeMultiplier), so Eval uses integer operations only.
package kernels

import (
	"errors"
	"fmt"

	"github.com/sbl8/tinysine/core"
	"github.com/sbl8/tinysine/model"
)

var (
	ErrTypeMismatch  = errors.New("operand type not supported by kernel")
	ErrShapeMismatch = errors.New("operand shapes are inconsistent")
	ErrOperandCount  = errors.New("wrong number of operands")
)

// OpData holds values precomputed by Prepare for use by Eval.
type OpData struct {
	Multiplier   int32
	Shift        int
	InputOffset  int32
	WeightOffset int32
	OutputOffset int32
	ActMin       int32
	ActMax       int32

	// Dimensions resolved from operand shapes.
	Batches int
	Depth   int
	Units   int
}

// Node is one operator bound to its operand tensors.
type Node struct {
	Opcode     model.Opcode
	Activation model.Activation
	Inputs     []*core.Tensor
	Outputs    []*core.Tensor
	Data       OpData
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%d→%d)", n.Opcode, len(n.Inputs), len(n.Outputs))
}

// Registration binds an opcode to its kernel implementation.
type Registration struct {
	Opcode  model.Opcode
	Prepare func(n *Node) error
	Eval    func(n *Node) error
}

func checkOperands(n *Node, minIn, maxIn, out int) error {
	if len(n.Inputs) < minIn || len(n.Inputs) > maxIn || len(n.Outputs) != out {
		return fmt.Errorf("%w: %s has %d inputs and %d outputs", ErrOperandCount, n.Opcode, len(n.Inputs), len(n.Outputs))
	}
	for _, t := range n.Inputs {
		if t == nil {
			return fmt.Errorf("%w: %s has an unbound input", ErrOperandCount, n.Opcode)
		}
	}
	for _, t := range n.Outputs {
		if t == nil {
			return fmt.Errorf("%w: %s has an unbound output", ErrOperandCount, n.Opcode)
		}
	}
	return nil
}

func typeError(n *Node, what string, got core.DType) error {
	return fmt.Errorf("%w: %s %s is %s", ErrTypeMismatch, n.Opcode, what, got)
}

// activationRange returns the clamp bounds for a fused activation on a
// quantized output.
func activationRange(act model.Activation, out *core.Tensor) (lo, hi int32) {
	lo, hi = out.Type.Range()
	if act == model.ActRelu {
		lo = max(lo, out.Params.ZeroPoint)
	}
	return lo, hi
}
