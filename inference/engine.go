// Package inference owns the one model, interpreter session and tensor
// arena of the process and exposes them as a single-input, single-output
// function.
//
// Initialize is the only fallible setup step and every failure it reports is
// fatal: schema mismatch, a missing kernel, or an arena too small for the
// model. After a successful Initialize, Invoke performs no heap allocation.
package inference

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/sbl8/tinysine/core"
	"github.com/sbl8/tinysine/model"
	"github.com/sbl8/tinysine/runtime"
)

// DefaultArenaSize matches the arena the firmware reserves for the sine model.
const DefaultArenaSize = 8 * 1024

// ErrNotInitialized is returned by Invoke before a successful Initialize.
var ErrNotInitialized = errors.New("inference engine not initialized")

// Options configures the engine.
type Options struct {
	// ArenaSize is the tensor arena capacity in bytes. Ignored when Arena is set.
	ArenaSize uintptr

	// Arena, if non-nil, is used as the tensor arena instead of a fresh
	// allocation; firmware passes a statically reserved buffer here.
	Arena []byte

	// EnableStats records invocation latency.
	EnableStats bool
}

// Engine adapts the interpreter to the control loop.
// Not safe for concurrent use.
type Engine struct {
	data []byte
	opts Options

	arena       *runtime.Arena
	interpreter *runtime.Interpreter
	input       *core.Tensor
	output      *core.Tensor
}

// New returns an engine for the serialized model in data. Nothing is
// parsed or allocated until Initialize.
func New(data []byte, opts Options) *Engine {
	if opts.ArenaSize == 0 {
		opts.ArenaSize = DefaultArenaSize
	}
	return &Engine{data: data, opts: opts}
}

// Initialize validates the artifact, registers the four kernels the sine
// model needs, binds the interpreter to the arena and allocates tensors.
// The schema version is checked before anything else, so a mismatched
// artifact leaves no arena behind. Calling Initialize again after success
// is a no-op.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.Ready() {
		return nil
	}
	log := klog.FromContext(ctx)

	if err := model.CheckVersion(e.data); err != nil {
		return err
	}
	m, err := model.Parse(e.data)
	if err != nil {
		return fmt.Errorf("parsing model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validating model: %w", err)
	}

	resolver, err := newResolver()
	if err != nil {
		return err
	}

	arena, err := e.newArena()
	if err != nil {
		return err
	}
	ip, err := runtime.NewInterpreter(m, resolver, arena, &runtime.InterpreterOptions{EnableStats: e.opts.EnableStats})
	if err != nil {
		return err
	}
	if err := ip.AllocateTensors(); err != nil {
		return fmt.Errorf("allocating tensors: %w", err)
	}

	input, output := ip.Input(0), ip.Output(0)
	if input == nil || output == nil {
		arena.Reset()
		return errors.New("model has no input or output tensor")
	}

	e.arena, e.interpreter = arena, ip
	e.input, e.output = input, output

	log.Info("inference engine ready",
		"schema", m.Version,
		"operators", len(m.Operators),
		"arenaUsed", arena.UsedSize(),
		"arenaSize", arena.TotalSize(),
		"input", input.Type,
		"output", output.Type)
	return nil
}

// newResolver registers exactly the kernels the sine model uses.
func newResolver() (*runtime.MutableOpResolver, error) {
	r := runtime.NewMutableOpResolver(4)
	for _, add := range []func() error{r.AddFullyConnected, r.AddRelu, r.AddQuantize, r.AddDequantize} {
		if err := add(); err != nil {
			return nil, fmt.Errorf("registering kernels: %w", err)
		}
	}
	return r, nil
}

func (e *Engine) newArena() (*runtime.Arena, error) {
	if e.opts.Arena != nil {
		return runtime.NewArenaFromBuffer(e.opts.Arena), nil
	}
	return runtime.NewArena(e.opts.ArenaSize)
}

// Ready reports whether Initialize has succeeded.
func (e *Engine) Ready() bool {
	return e.interpreter != nil
}

// Input returns the model's input tensor, or nil before Initialize.
// The handle stays valid for the life of the engine.
func (e *Engine) Input() *core.Tensor {
	return e.input
}

// Output returns the model's output tensor, or nil before Initialize.
func (e *Engine) Output() *core.Tensor {
	return e.output
}

// Invoke runs one forward pass over the current input value.
func (e *Engine) Invoke() error {
	if e.interpreter == nil {
		return ErrNotInitialized
	}
	return e.interpreter.Invoke()
}

// ArenaUsed reports the arena bytes held by tensors; zero before Initialize.
func (e *Engine) ArenaUsed() uintptr {
	if e.arena == nil {
		return 0
	}
	return e.arena.UsedSize()
}

// Stats returns interpreter statistics; zero before Initialize.
func (e *Engine) Stats() runtime.ExecutionStats {
	if e.interpreter == nil {
		return runtime.ExecutionStats{}
	}
	return e.interpreter.Stats()
}
