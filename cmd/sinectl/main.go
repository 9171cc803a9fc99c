// sinectl runs the sine inference loop on a host: the embedded model drives
// a PWM pin (or a logging stand-in) and Pred/True lines go to stdout or a
// serial port.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	ossignal "os/signal"
	"syscall"

	"go.bug.st/serial"
	"k8s.io/klog/v2"
	"periph.io/x/conn/v3/physic"

	"github.com/sbl8/tinysine/actuator"
	"github.com/sbl8/tinysine/clock"
	"github.com/sbl8/tinysine/config"
	"github.com/sbl8/tinysine/control"
	"github.com/sbl8/tinysine/diag"
	"github.com/sbl8/tinysine/inference"
	"github.com/sbl8/tinysine/signal"
	"github.com/sbl8/tinysine/sinemodel"
)

func main() {
	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML configuration")
	period := flag.Duration("period", 0, "Cycle period (overrides loop.period)")
	cycles := flag.Uint64("cycles", 0, "Stop after this many cycles (overrides loop.max_cycles)")
	driver := flag.String("driver", "", "Actuator driver: log or periph (overrides actuator.driver)")
	pin := flag.String("pin", "", "PWM pin name for the periph driver (overrides actuator.pin)")
	output := flag.String("output", "", "Diagnostics output: stdout or serial (overrides diagnostics.output)")
	port := flag.String("port", "", "Serial port for diagnostics (overrides diagnostics.port)")

	klog.InitFlags(nil)
	flag.Parse()

	log := klog.FromContext(ctx)
	ctx = klog.NewContext(ctx, log)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "period":
			cfg.Loop.Period = *period
		case "cycles":
			cfg.Loop.MaxCycles = *cycles
		case "driver":
			cfg.Actuator.Driver = *driver
		case "pin":
			cfg.Actuator.Pin = *pin
		case "output":
			cfg.Diagnostics.Output = *output
		case "port":
			cfg.Diagnostics.Port = *port
		}
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ch, err := openChannel(log, cfg.Actuator)
	if err != nil {
		return err
	}
	if h, ok := ch.(interface{ Halt() error }); ok {
		defer h.Halt()
	}
	out, err := openDiagnostics(cfg.Diagnostics)
	if err != nil {
		return err
	}
	defer out.Close()

	var clk clock.Clock
	if boot, err := clock.NewBoot(); err == nil {
		clk = boot
	} else {
		log.Info("CLOCK_MONOTONIC unavailable, using runtime clock", "err", err)
		clk = clock.NewMonotonic()
	}

	engine := inference.New(sinemodel.Data, inference.Options{
		ArenaSize:   uintptr(cfg.Engine.ArenaSize),
		EnableStats: cfg.Engine.Stats,
	})
	loop := control.New(control.Config{
		Period:     cfg.Loop.Period,
		MaxCycles:  cfg.Loop.MaxCycles,
		Resolution: cfg.Actuator.Resolution,
	}, control.Components{
		Engine:  engine,
		Channel: ch,
		Diag:    diag.NewWriter(out),
		Clock:   clk,
		Signal:  signal.New(cfg.Loop.Rate),
	})

	log.Info("starting sinectl",
		"config", *configPath,
		"driver", cfg.Actuator.Driver,
		"diagnostics", cfg.Diagnostics.Output,
		"period", cfg.Loop.Period,
		"modelBytes", sinemodel.DataLen)

	err = loop.Run(ctx)
	if cfg.Engine.Stats {
		stats := engine.Stats()
		log.Info("inference stats",
			"invocations", stats.TotalInvocations,
			"averageLatency", stats.AverageLatency,
			"arenaUtilization", stats.ArenaUtilization,
			"overruns", loop.Overruns())
	}
	if err != nil {
		return fmt.Errorf("control loop halted: %w", err)
	}
	return nil
}

// loadConfig falls back to defaults only when the default file is absent.
func loadConfig(path string) (*config.Config, error) {
	if path == config.DefaultPath {
		return config.LoadOrDefault(path)
	}
	return config.Load(path)
}

func openChannel(log klog.Logger, c config.ActuatorConfig) (actuator.Channel, error) {
	switch c.Driver {
	case config.DriverPeriph:
		ch, err := actuator.OpenPeriph(c.Pin, physic.Frequency(c.FrequencyHz)*physic.Hertz)
		if err != nil {
			return nil, fmt.Errorf("opening pwm pin: %w", err)
		}
		return ch, nil
	default:
		return actuator.NewLogChannel(log), nil
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openDiagnostics(c config.DiagnosticsConfig) (io.WriteCloser, error) {
	if c.Output != config.OutputSerial {
		return nopCloser{os.Stdout}, nil
	}
	port, err := serial.Open(c.Port, &serial.Mode{BaudRate: c.Baud})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %q: %w", c.Port, err)
	}
	return port, nil
}
