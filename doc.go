// Package tinysine runs a quantized sine-approximation network in a fixed
// period control loop and turns each prediction into a PWM duty cycle.
//
// A small ReLU network approximates sin(x) on [0, 2π). Every cycle the loop
// sweeps x with elapsed time, runs the model through an arena-backed
// interpreter, maps the prediction from [-1, 1] onto the duty-cycle range
// and reports the prediction next to the true value on a text stream.
//
// # Architecture Overview
//
//   - Model artifact: a versioned, checksummed binary graph compiled into the
//     binary as a byte array
//   - Interpreter: bump-allocated tensor arena, bounded kernel registry and
//     int8/float32 kernels; no heap allocation after setup
//   - Control loop: explicit collaborators (engine, PWM channel, clock,
//     diagnostic writer), cooperative shutdown and overrun accounting
//
// # Basic Usage
//
//	// Regenerate the embedded model
//	sinec -variant int8 -hidden 16 -o sinemodel/model_data.go
//
//	// Run the loop on a host, printing Pred/True lines
//	sinectl -driver log -cycles 500
//
//	// Capture a device's serial output into SQLite
//	sinerec -port /dev/ttyACM0 -db runs.db
//
// Or from Go:
//
//	engine := inference.New(sinemodel.Data, inference.Options{})
//	loop := control.New(control.Config{}, control.Components{
//	    Engine:  engine,
//	    Channel: actuator.NewLogChannel(klog.Background()),
//	    Diag:    diag.NewWriter(os.Stdout),
//	})
//	if err := loop.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Package Structure
//
//   - core: tensor handles, element types and alignment helpers
//   - model: artifact format, parsing and validation
//   - compiler: fits the network and emits artifacts
//   - sinemodel: the embedded artifact
//   - kernels: FULLY_CONNECTED, RELU, QUANTIZE and DEQUANTIZE
//   - runtime: arena, op resolver and interpreter
//   - inference: the engine the loop drives
//   - quant: scalar quantization codecs
//   - signal, actuator, clock, diag: loop inputs and outputs
//   - control: the loop itself
//   - config, recorder: host-side configuration and capture
//   - cmd: command-line tools (sinec, sinectl, sinerec, sineperf, sinefw)
package tinysine
