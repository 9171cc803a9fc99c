//go:build tinygo

// sinefw is the microcontroller build of the loop:
//
//	tinygo flash -target pico2 ./cmd/sinefw
//
// The model drives the PWM pin and the diagnostic stream goes to the USB
// serial console, where sinerec or a plotter can read it.
package main

import (
	"context"
	"machine"
	"time"

	"github.com/sbl8/tinysine/actuator"
	"github.com/sbl8/tinysine/clock"
	"github.com/sbl8/tinysine/control"
	"github.com/sbl8/tinysine/diag"
	"github.com/sbl8/tinysine/inference"
	"github.com/sbl8/tinysine/signal"
	"github.com/sbl8/tinysine/sinemodel"
)

const (
	pwmPin = machine.GPIO15
	// 1 kHz carrier.
	pwmPeriod = uint64(time.Millisecond)
)

// arena is reserved statically so the engine never touches the heap.
var arena [inference.DefaultArenaSize]byte

func main() {
	// Give the host a moment to open the USB console.
	time.Sleep(2 * time.Second)

	out := diag.NewWriter(machine.Serial)

	ch, err := NewTinyGoChannel(pwmPin, pwmPeriod)
	if err != nil {
		halt(out, err)
	}
	loop := control.New(control.Config{
		Period:     control.DefaultPeriod,
		Resolution: actuator.Resolution,
	}, control.Components{
		Engine:  inference.New(sinemodel.Data, inference.Options{Arena: arena[:]}),
		Channel: ch,
		Diag:    out,
		Clock:   clock.NewMonotonic(),
		Signal:  signal.New(signal.DefaultRate),
	})

	// Run only returns on a fatal error; it has already reported the cause.
	if err := loop.Run(context.Background()); err != nil {
		halt(nil, err)
	}
}

// halt parks the core. There is no restart; a reset is required.
func halt(out *diag.Writer, err error) {
	if out != nil {
		_ = out.Fatal(err)
	}
	for {
		time.Sleep(time.Second)
	}
}
