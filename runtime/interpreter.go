// Package runtime executes a parsed model inside a fixed-size tensor arena.
//
// The Interpreter is built in two phases. AllocateTensors binds every operator
// to a kernel from the OpResolver, carves every non-constant tensor out of the
// Arena and runs each kernel's Prepare step; it is the only phase that may
// fail for resource reasons. Invoke then runs the operators in list order and
// performs no heap allocation.
package runtime

import (
	"errors"
	"fmt"
	"time"

	"github.com/sbl8/tinysine/core"
	"github.com/sbl8/tinysine/kernels"
	"github.com/sbl8/tinysine/model"
)

// ErrNotAllocated is returned by Invoke before a successful AllocateTensors.
var ErrNotAllocated = errors.New("tensors not allocated")

// InterpreterOptions configures interpreter behavior.
type InterpreterOptions struct {
	// EnableStats records invocation count and latency.
	EnableStats bool
}

// ExecutionStats tracks runtime performance metrics.
type ExecutionStats struct {
	TotalInvocations int64
	LastLatency      time.Duration
	AverageLatency   time.Duration
	ArenaUtilization float64
}

// Interpreter runs one model against one arena.
// Not safe for concurrent use.
type Interpreter struct {
	model    *model.Model
	resolver OpResolver
	arena    *Arena
	opts     InterpreterOptions

	tensors   []core.Tensor
	nodes     []kernels.Node
	evals     []func(*kernels.Node) error
	allocated bool
	stats     ExecutionStats
}

// NewInterpreter binds a model to a resolver and arena. The model's schema
// version must equal model.SchemaVersion.
func NewInterpreter(m *model.Model, resolver OpResolver, arena *Arena, opts *InterpreterOptions) (*Interpreter, error) {
	if m == nil {
		return nil, errors.New("model cannot be nil")
	}
	if resolver == nil || arena == nil {
		return nil, errors.New("resolver and arena are required")
	}
	if m.Version != model.SchemaVersion {
		return nil, fmt.Errorf("%w: model provided is schema version %d not equal to supported version %d",
			model.ErrSchemaMismatch, m.Version, model.SchemaVersion)
	}
	ip := &Interpreter{model: m, resolver: resolver, arena: arena}
	if opts != nil {
		ip.opts = *opts
	}
	return ip, nil
}

// AllocateTensors plans tensor storage and prepares every operator. On
// failure the arena is rewound and the interpreter stays unallocated.
// Calling it again after success is a no-op.
func (ip *Interpreter) AllocateTensors() error {
	if ip.allocated {
		return nil
	}
	if err := ip.allocate(); err != nil {
		ip.arena.Reset()
		ip.tensors, ip.nodes, ip.evals = nil, nil, nil
		return err
	}
	ip.allocated = true
	ip.stats.ArenaUtilization = float64(ip.arena.UsedSize()) / float64(ip.arena.TotalSize())
	return nil
}

func (ip *Interpreter) allocate() error {
	m := ip.model

	regs := make([]kernels.Registration, len(m.Operators))
	for i, op := range m.Operators {
		reg, ok := ip.resolver.FindOp(op.Opcode)
		if !ok {
			return fmt.Errorf("%w: %s (operator %d)", ErrUnsupportedOp, op.Opcode, i)
		}
		regs[i] = reg
	}

	ip.tensors = make([]core.Tensor, len(m.Tensors))
	for i := range m.Tensors {
		src := &m.Tensors[i]
		t := &ip.tensors[i]
		t.Type, t.Shape, t.Params = src.Type, src.Shape, src.Params

		size, err := src.ByteSize()
		if err != nil {
			return fmt.Errorf("tensor %d: %w", i, err)
		}
		if src.Constant() {
			if int(src.Buffer) >= len(m.Buffers) {
				return fmt.Errorf("tensor %d references buffer %d, model has %d", i, src.Buffer, len(m.Buffers))
			}
			t.Data = m.Buffers[src.Buffer]
		} else {
			data, err := ip.arena.Allocate(fmt.Sprintf("tensor/%d", i), uintptr(size), core.TensorAlignment)
			if err != nil {
				return err
			}
			clear(data)
			t.Data = data
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tensor %d: %w", i, err)
		}
	}

	ip.nodes = make([]kernels.Node, len(m.Operators))
	ip.evals = make([]func(*kernels.Node) error, len(m.Operators))
	for i, op := range m.Operators {
		n := &ip.nodes[i]
		n.Opcode = op.Opcode
		n.Activation = op.Activation
		n.Inputs = ip.bind(op.Inputs)
		n.Outputs = ip.bind(op.Outputs)
		if err := regs[i].Prepare(n); err != nil {
			return fmt.Errorf("prepare operator %d: %w", i, err)
		}
		ip.evals[i] = regs[i].Eval
	}
	return nil
}

func (ip *Interpreter) bind(indices []uint16) []*core.Tensor {
	out := make([]*core.Tensor, len(indices))
	for i, idx := range indices {
		out[i] = &ip.tensors[idx]
	}
	return out
}

// Invoke runs one inference over the current input tensor contents.
func (ip *Interpreter) Invoke() error {
	if !ip.allocated {
		return ErrNotAllocated
	}

	var start time.Time
	if ip.opts.EnableStats {
		start = time.Now()
	}

	for i := range ip.nodes {
		if err := ip.evals[i](&ip.nodes[i]); err != nil {
			return fmt.Errorf("invoke operator %d (%s): %w", i, ip.nodes[i].Opcode, err)
		}
	}

	if ip.opts.EnableStats {
		ip.updateExecutionStats(start)
	}
	return nil
}

// updateExecutionStats updates total invocations and average latency.
func (ip *Interpreter) updateExecutionStats(start time.Time) {
	d := time.Since(start)
	s := &ip.stats
	s.TotalInvocations++
	s.LastLatency = d
	s.AverageLatency += (d - s.AverageLatency) / time.Duration(s.TotalInvocations)
}

// Input returns graph input i, or nil before allocation or when out of range.
func (ip *Interpreter) Input(i int) *core.Tensor {
	return ip.graphTensor(ip.model.Inputs, i)
}

// Output returns graph output i, or nil before allocation or when out of range.
func (ip *Interpreter) Output(i int) *core.Tensor {
	return ip.graphTensor(ip.model.Outputs, i)
}

func (ip *Interpreter) graphTensor(indices []uint16, i int) *core.Tensor {
	if !ip.allocated || i < 0 || i >= len(indices) {
		return nil
	}
	return &ip.tensors[indices[i]]
}

// InputsSize returns the number of graph inputs.
func (ip *Interpreter) InputsSize() int { return len(ip.model.Inputs) }

// OutputsSize returns the number of graph outputs.
func (ip *Interpreter) OutputsSize() int { return len(ip.model.Outputs) }

// ArenaUsedBytes reports the arena bytes consumed by tensor allocation.
func (ip *Interpreter) ArenaUsedBytes() uintptr {
	return ip.arena.UsedSize()
}

// Stats returns current execution statistics.
func (ip *Interpreter) Stats() ExecutionStats {
	return ip.stats
}
