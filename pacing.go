package main

import (
	"context"
	"time"
)

// Pacer spaces out successive calls against upstream services. It is an
// explicit policy object so the fixed delay can be swapped for a different
// throttling strategy without touching orchestration.
type Pacer interface {
	Wait(ctx context.Context) error
}

type fixedPacer struct {
	delay time.Duration
}

// NewFixedPacer returns a Pacer that waits a constant delay per call.
func NewFixedPacer(delay time.Duration) Pacer {
	return fixedPacer{delay: delay}
}

func (p fixedPacer) Wait(ctx context.Context) error {
	return sleepCtx(ctx, p.delay)
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
