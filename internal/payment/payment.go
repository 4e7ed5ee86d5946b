// Package payment simulates the flat-fee checkout step. There is no real
// payment processing: the processor just takes the configured amount of time
// and succeeds, which is enough to exercise the in-flight flag gating.
package payment

import (
	"context"
	"time"
)

// Processor runs the simulated payment delay.
type Processor struct {
	delay time.Duration
}

// NewProcessor constructs a Processor with the given simulated delay.
func NewProcessor(delay time.Duration) *Processor {
	return &Processor{delay: delay}
}

// Process blocks for the simulated processing time. It returns early with the
// context's error if the caller goes away before the delay elapses.
func (p *Processor) Process(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
