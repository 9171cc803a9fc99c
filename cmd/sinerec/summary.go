package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sbl8/tinysine/recorder"
)

func parseRunID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid run id %q: %w", s, err)
	}
	return id, nil
}

func printSummary(ctx context.Context, store *recorder.Store, id uuid.UUID) error {
	sum, err := store.Summary(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("Run:            %s\n", sum.Run.ID)
	fmt.Printf("Source:         %s\n", sum.Run.Source)
	fmt.Printf("Started:        %s\n", sum.Run.Started.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Samples:        %d\n", sum.Count)
	fmt.Printf("Max abs error:  %.4f\n", sum.MaxAbsError)
	fmt.Printf("RMSE:           %.4f\n", sum.RMSE)
	if sum.Run.Fatal != "" {
		fmt.Printf("Fatal:          %s\n", sum.Run.Fatal)
	}
	return nil
}
