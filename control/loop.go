// Package control runs the sense-infer-actuate cycle.
//
// A Loop owns its collaborators explicitly: the inference engine, the PWM
// channel, the clock and the diagnostic stream are passed to New, so tests
// substitute fakes for any of them. Run brings the hardware up, initializes
// the engine and then cycles at a fixed period until the context is done,
// MaxCycles is reached, or a fatal error halts it.
//
// Each cycle:
//
//	elapsed → phase x → encode → invoke → decode → duty → PWM level → "Pred,True" line → sleep
//
// After initialization a cycle performs no heap allocation.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"k8s.io/klog/v2"

	"github.com/sbl8/tinysine/actuator"
	"github.com/sbl8/tinysine/clock"
	"github.com/sbl8/tinysine/core"
	"github.com/sbl8/tinysine/diag"
	"github.com/sbl8/tinysine/quant"
	"github.com/sbl8/tinysine/signal"
)

// DefaultPeriod is the nominal cycle period.
const DefaultPeriod = 20 * time.Millisecond

// State is the loop's lifecycle state.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	// StateHalted follows a fatal error. It is terminal.
	StateHalted
	// StateStopped follows cancellation or the cycle limit.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("control loop already ran")

// Engine is the inference session the loop drives. *inference.Engine
// satisfies it.
type Engine interface {
	Initialize(ctx context.Context) error
	Input() *core.Tensor
	Output() *core.Tensor
	Invoke() error
}

// Config holds the loop's timing and output settings.
type Config struct {
	// Period is the nominal time between cycle starts.
	Period time.Duration
	// MaxCycles stops the loop after that many cycles; zero runs until
	// the context is done.
	MaxCycles uint64
	// Resolution is the number of PWM duty steps.
	Resolution uint32
}

// Components are the loop's collaborators. Clock and Signal default to a
// monotonic clock and the default sweep rate.
type Components struct {
	Engine  Engine
	Channel actuator.Channel
	Diag    *diag.Writer
	Clock   clock.Clock
	Signal  signal.Generator
}

// Loop is the control loop. Run may be called once.
type Loop struct {
	cfg    Config
	engine Engine
	ch     actuator.Channel
	diag   *diag.Writer
	clk    clock.Clock
	gen    signal.Generator
	mapper actuator.Mapper

	// resolved once in initialize
	in, out *core.Tensor
	enc     quant.Codec
	dec     quant.Codec

	log klog.Logger

	started  atomic.Bool
	state    atomic.Int32
	cycles   atomic.Uint64
	overruns atomic.Uint64
	last     atomic.Uint32
}

// New returns a loop in the initializing state.
func New(cfg Config, c Components) *Loop {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Resolution < 2 {
		cfg.Resolution = actuator.Resolution
	}
	if c.Clock == nil {
		c.Clock = clock.NewMonotonic()
	}
	if c.Signal.Rate == 0 {
		c.Signal = signal.New(signal.DefaultRate)
	}
	return &Loop{
		cfg:    cfg,
		engine: c.Engine,
		ch:     c.Channel,
		diag:   c.Diag,
		clk:    c.Clock,
		gen:    c.Signal,
		mapper: actuator.NewMapper(cfg.Resolution),
		log:    klog.Background(),
	}
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Cycles returns the number of completed cycles.
func (l *Loop) Cycles() uint64 {
	return l.cycles.Load()
}

// Overruns returns the number of cycles whose work exceeded the period.
func (l *Loop) Overruns() uint64 {
	return l.overruns.Load()
}

// Level returns the most recent PWM level written.
func (l *Loop) Level() uint32 {
	return l.last.Load()
}

// Run initializes and runs the loop. It returns nil when stopped by ctx or
// the cycle limit, and the cause when a fatal error halts the loop. A fatal
// cause is also written to the diagnostic stream.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	l.log = klog.FromContext(ctx).WithName("control")

	if err := l.initialize(ctx); err != nil {
		return l.halt(fmt.Errorf("initialization: %w", err))
	}
	l.state.Store(int32(StateRunning))
	l.log.Info("control loop running",
		"period", l.cfg.Period,
		"maxCycles", l.cfg.MaxCycles,
		"input", l.enc,
		"output", l.dec)

	for l.cfg.MaxCycles == 0 || l.cycles.Load() < l.cfg.MaxCycles {
		if ctx.Err() != nil {
			break
		}
		if err := l.cycle(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				break
			}
			return l.halt(err)
		}
	}
	return l.stop()
}

// initialize brings up the PWM channel, then the engine, and resolves the
// tensor handles and their codecs.
func (l *Loop) initialize(ctx context.Context) error {
	if l.engine == nil || l.ch == nil || l.diag == nil {
		return errors.New("engine, channel and diagnostic writer are required")
	}
	if err := actuator.Bringup(l.ch, l.cfg.Resolution); err != nil {
		return err
	}
	if err := l.engine.Initialize(ctx); err != nil {
		return err
	}

	l.in, l.out = l.engine.Input(), l.engine.Output()
	var err error
	if l.enc, err = quant.ForTensor(l.in); err != nil {
		return fmt.Errorf("input tensor: %w", err)
	}
	if l.dec, err = quant.ForTensor(l.out); err != nil {
		return fmt.Errorf("output tensor: %w", err)
	}
	return nil
}

// cycle runs one iteration and sleeps out the rest of the period. Time
// spent on the work is subtracted from the sleep; a cycle whose work takes
// the whole period is counted as an overrun and does not sleep or try to
// catch up.
func (l *Loop) cycle(ctx context.Context) error {
	start := l.clk.Elapsed()
	x := l.gen.Sample(start)

	l.enc.Store(l.in, float32(x))
	if err := l.engine.Invoke(); err != nil {
		return fmt.Errorf("invoke: %w", err)
	}
	y := l.dec.Load(l.out)

	level := l.mapper.Duty(y)
	if err := l.ch.Set(level); err != nil {
		return fmt.Errorf("writing pwm level: %w", err)
	}
	l.last.Store(level)

	if err := l.diag.Emit(float64(y), signal.Reference(x)); err != nil {
		return fmt.Errorf("writing diagnostics: %w", err)
	}
	n := l.cycles.Add(1)

	if v := l.log.V(4); v.Enabled() {
		v.Info("cycle", "n", n, "x", x, "y", y, "level", level)
	}

	remaining := l.cfg.Period - (l.clk.Elapsed() - start)
	if remaining <= 0 {
		l.overruns.Add(1)
		if v := l.log.V(2); v.Enabled() {
			v.Info("cycle overran period", "n", n, "overrun", -remaining)
		}
		return nil
	}
	return l.clk.Sleep(ctx, remaining)
}

func (l *Loop) halt(cause error) error {
	l.state.Store(int32(StateHalted))
	if l.diag != nil {
		if err := l.diag.Fatal(cause); err != nil {
			l.log.Error(err, "reporting fatal error")
		}
	}
	l.quiesce()
	l.log.Error(cause, "control loop halted", "cycles", l.Cycles())
	return cause
}

func (l *Loop) stop() error {
	l.state.Store(int32(StateStopped))
	l.quiesce()
	l.log.Info("control loop stopped", "cycles", l.Cycles(), "overruns", l.Overruns())
	return nil
}

// quiesce leaves the output at level zero, disabled.
func (l *Loop) quiesce() {
	if l.ch == nil {
		return
	}
	if err := l.ch.Set(0); err != nil {
		l.log.V(2).Info("resetting pwm level", "err", err)
	}
	if err := l.ch.Enable(false); err != nil {
		l.log.V(2).Info("disabling pwm", "err", err)
	}
}
