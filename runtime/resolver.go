package runtime

import (
	"errors"
	"fmt"

	"github.com/sbl8/tinysine/kernels"
	"github.com/sbl8/tinysine/model"
)

var (
	ErrResolverFull  = errors.New("op resolver capacity exceeded")
	ErrUnsupportedOp = errors.New("operator not registered")
)

// OpResolver maps the opcodes a model uses to kernel implementations.
type OpResolver interface {
	FindOp(op model.Opcode) (kernels.Registration, bool)
}

// MutableOpResolver is an OpResolver with a fixed number of slots. Only the
// kernels explicitly added are linked into the interpreter.
type MutableOpResolver struct {
	regs     []kernels.Registration
	capacity int
}

// NewMutableOpResolver returns a resolver with room for capacity kernels.
func NewMutableOpResolver(capacity int) *MutableOpResolver {
	return &MutableOpResolver{
		regs:     make([]kernels.Registration, 0, capacity),
		capacity: capacity,
	}
}

// Add registers a kernel. Adding an opcode twice or past capacity fails.
func (r *MutableOpResolver) Add(reg kernels.Registration) error {
	if _, ok := r.FindOp(reg.Opcode); ok {
		return fmt.Errorf("operator %s registered twice", reg.Opcode)
	}
	if len(r.regs) >= r.capacity {
		return fmt.Errorf("%w: cannot add %s, all %d slots used", ErrResolverFull, reg.Opcode, r.capacity)
	}
	r.regs = append(r.regs, reg)
	return nil
}

func (r *MutableOpResolver) AddFullyConnected() error { return r.Add(kernels.FullyConnected()) }
func (r *MutableOpResolver) AddRelu() error           { return r.Add(kernels.Relu()) }
func (r *MutableOpResolver) AddQuantize() error       { return r.Add(kernels.Quantize()) }
func (r *MutableOpResolver) AddDequantize() error     { return r.Add(kernels.Dequantize()) }

// FindOp implements OpResolver.
func (r *MutableOpResolver) FindOp(op model.Opcode) (kernels.Registration, bool) {
	for _, reg := range r.regs {
		if reg.Opcode == op {
			return reg, true
		}
	}
	return kernels.Registration{}, false
}

// Len returns the number of registered kernels.
func (r *MutableOpResolver) Len() int {
	return len(r.regs)
}
