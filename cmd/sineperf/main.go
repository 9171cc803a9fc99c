package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/sbl8/tinysine/compiler"
	"github.com/sbl8/tinysine/inference"
	"github.com/sbl8/tinysine/quant"
	"github.com/sbl8/tinysine/signal"
	"github.com/sbl8/tinysine/sinemodel"
)

var (
	variant = flag.String("variant", "all", "Model variant: all, embedded, int8, hybrid, float32")
	iter    = flag.Int("iter", 100000, "Number of invocations")
	arena   = flag.Int("arena", inference.DefaultArenaSize, "Tensor arena size in bytes")
	verbose = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()

	fmt.Printf("Sine Model Inference Profile\n")
	fmt.Printf("============================\n")
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("Iterations: %d\n", *iter)
	fmt.Printf("Arena: %d bytes\n", *arena)
	fmt.Printf("\n")

	var names []string
	switch *variant {
	case "all":
		names = []string{"embedded", "int8", "hybrid", "float32"}
	case "embedded", "int8", "hybrid", "float32":
		names = []string{*variant}
	default:
		fmt.Printf("Unknown variant: %s\n", *variant)
		os.Exit(1)
	}

	failed := false
	for _, name := range names {
		if err := profile(name); err != nil {
			fmt.Printf("%-10s FAILED: %v\n\n", name, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func artifact(name string) ([]byte, error) {
	if name == "embedded" {
		return sinemodel.Data, nil
	}
	v, err := compiler.ParseVariant(name)
	if err != nil {
		return nil, err
	}
	opts := compiler.DefaultOptions()
	opts.Variant = v
	m, err := compiler.CompileSine(opts)
	if err != nil {
		return nil, err
	}
	return m.Serialize()
}

func profile(name string) error {
	data, err := artifact(name)
	if err != nil {
		return err
	}
	e := inference.New(data, inference.Options{ArenaSize: uintptr(*arena), EnableStats: true})
	if err := e.Initialize(context.Background()); err != nil {
		return err
	}
	in, out := e.Input(), e.Output()
	enc, err := quant.ForTensor(in)
	if err != nil {
		return err
	}
	dec, err := quant.ForTensor(out)
	if err != nil {
		return err
	}

	fmt.Printf("%s model (%d bytes)\n", name, len(data))
	fmt.Printf("----------------------------\n")
	fmt.Printf("Input codec:    %v\n", enc)
	fmt.Printf("Output codec:   %v\n", dec)
	fmt.Printf("Arena used:     %d bytes\n", e.ArenaUsed())

	gen := signal.New(signal.DefaultRate)
	step := gen.Period() / time.Duration(max(*iter, 1))
	latencies := make([]time.Duration, *iter)
	var worst float64

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	start := time.Now()
	for i := 0; i < *iter; i++ {
		x := gen.Sample(time.Duration(i) * step)
		t := time.Now()
		enc.Store(in, float32(x))
		if err := e.Invoke(); err != nil {
			return err
		}
		y := dec.Load(out)
		latencies[i] = time.Since(t)
		worst = max(worst, math.Abs(float64(y)-signal.Reference(x)))
	}
	total := time.Since(start)
	runtime.ReadMemStats(&after)

	slices.Sort(latencies)
	pct := func(p float64) time.Duration {
		if len(latencies) == 0 {
			return 0
		}
		return latencies[int(p*float64(len(latencies)-1))]
	}
	allocs := float64(after.Mallocs-before.Mallocs) / float64(max(*iter, 1))

	fmt.Printf("Total:          %v (%.2f Minv/s)\n", total, float64(*iter)/total.Seconds()/1e6)
	fmt.Printf("Latency p50:    %v\n", pct(0.50))
	fmt.Printf("Latency p99:    %v\n", pct(0.99))
	fmt.Printf("Latency max:    %v\n", pct(1))
	fmt.Printf("Allocs/invoke:  %.3f\n", allocs)
	fmt.Printf("Max abs error:  %.4f\n", worst)

	if *verbose {
		stats := e.Stats()
		fmt.Printf("  Interpreter invocations: %d\n", stats.TotalInvocations)
		fmt.Printf("  Interpreter avg latency: %v\n", stats.AverageLatency)
		fmt.Printf("  Arena utilization:       %.1f%%\n", stats.ArenaUtilization*100)
	}
	fmt.Printf("\n")
	return nil
}
