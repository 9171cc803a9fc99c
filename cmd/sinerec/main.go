// sinerec captures a device's Pred/True diagnostic stream into SQLite and
// prints the run's error summary.
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

	"github.com/sbl8/tinysine/recorder"
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
	port := flag.String("port", "/dev/ttyACM0", "Serial port the device writes diagnostics to")
	baud := flag.Int("baud", 115200, "Serial baud rate")
	input := flag.String("input", "", "Read diagnostics from this file instead of the serial port (- for stdin)")
	dbPath := flag.String("db", "sinerec.db", "SQLite database path")
	summary := flag.String("summary", "", "Print the summary of an existing run ID and exit")

	klog.InitFlags(nil)
	flag.Parse()

	log := klog.FromContext(ctx)
	ctx = klog.NewContext(ctx, log)

	store := recorder.NewStore(*dbPath)
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("opening %s: %w", *dbPath, err)
	}
	defer store.Close()

	if *summary != "" {
		id, err := parseRunID(*summary)
		if err != nil {
			return err
		}
		return printSummary(ctx, store, id)
	}

	src, source, err := openSource(*input, *port, *baud)
	if err != nil {
		return err
	}
	defer src.Close()

	rec, err := store.StartRun(ctx, source)
	if err != nil {
		return err
	}
	log.Info("capturing", "run", rec.ID, "source", source, "db", *dbPath)

	stats, err := recorder.Capture(ctx, store, rec.ID, src)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("capturing from %s: %w", source, err)
	}
	log.Info("capture finished", "samples", stats.Samples, "skipped", stats.Skipped, "fatal", stats.Fatal)

	// The capture context may be cancelled; the summary still needs the store.
	return printSummary(context.WithoutCancel(ctx), store, rec.ID)
}

func openSource(input, port string, baud int) (io.ReadCloser, string, error) {
	switch input {
	case "":
		p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
		if err != nil {
			return nil, "", fmt.Errorf("opening serial port %q: %w", port, err)
		}
		return p, port, nil
	case "-":
		return io.NopCloser(os.Stdin), "stdin", nil
	default:
		f, err := os.Open(input)
		if err != nil {
			return nil, "", err
		}
		return f, input, nil
	}
}
