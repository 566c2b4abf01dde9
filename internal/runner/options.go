package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// VU identifies the virtual user running an iteration. Iteration is the
// zero-based count of iterations this VU has started.
type VU struct {
	ID        int
	Iteration int64
}

// Requester executes a single iteration for a VU.
// Implementations should return an error for failed iterations.
type Requester interface {
	Do(ctx context.Context, vu VU) error
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, vu VU) error

func (f RequesterFunc) Do(ctx context.Context, vu VU) error { return f(ctx, vu) }

// Options configure the Runner. The Runner keeps its own copy.
type Options struct {
	VUs            int                         // number of VU goroutines
	Iterations     int                         // shared iteration cap (0 means duration-bound)
	Duration       time.Duration               // how long new iterations may start (0 means no deadline)
	GracefulStop   time.Duration               // how long in-flight iterations may run past the deadline
	RatePerSecond  int                         // iterations per second across all VUs (0 means unlimited)
	Requester      Requester                   // iteration executor (required)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.VUs <= 0 {
		o.VUs = 1
	}
	if o.Iterations < 0 {
		o.Iterations = 0
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	if o.GracefulStop < 0 {
		o.GracefulStop = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
