package recorder

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/sbl8/tinysine/diag"
)

// CaptureStats counts what Capture saw.
type CaptureStats struct {
	Samples int64
	Skipped int64
	Fatal   bool
}

// Capture reads diagnostic lines from r into run until EOF, a fatal line or
// ctx is done. Lines that are neither samples nor fatal reports are skipped.
// If r is an io.Closer it is closed when ctx is done, which unblocks a read
// waiting on a quiet serial port.
func Capture(ctx context.Context, store *Store, runID uuid.UUID, r io.Reader) (CaptureStats, error) {
	log := klog.FromContext(ctx).WithValues("run", runID)
	var stats CaptureStats

	if c, ok := r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := sc.Text()

		if sample, ok := diag.ParseLine(line); ok {
			if err := store.Record(ctx, runID, stats.Samples, sample); err != nil {
				return stats, fmt.Errorf("record sample %d: %w", stats.Samples, err)
			}
			stats.Samples++
			if v := log.V(4); v.Enabled() {
				v.Info("sample", "seq", stats.Samples-1, "pred", sample.Pred, "true", sample.True)
			}
			continue
		}
		if cause, ok := diag.ParseFatal(line); ok {
			stats.Fatal = true
			log.Info("device reported fatal error", "cause", cause)
			return stats, store.RecordFatal(ctx, runID, cause)
		}
		stats.Skipped++
		log.V(2).Info("skipping line", "line", line)
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read diagnostics: %w", err)
	}
	return stats, nil
}
