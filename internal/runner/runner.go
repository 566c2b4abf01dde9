package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Result captures execution summary.
type Result struct {
	Iterations  int64 // iterations that ran to completion, failed or not
	Errors      int64 // completed iterations that returned an error
	Interrupted int64 // iterations cut off by the graceful stop or by cancellation
	Duration    time.Duration
}

// Runner drives a fixed pool of VUs. A Runner is single use.
type Runner struct {
	opt   Options
	state atomic.Int32

	claimed     atomic.Int64
	completed   atomic.Int64
	errs        atomic.Int64
	interrupted atomic.Int64
	active      atomic.Int64
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// State returns the current lifecycle phase.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Completed returns the number of iterations finished so far.
func (r *Runner) Completed() int64 { return r.completed.Load() }

// ActiveVUs returns the number of VUs currently inside an iteration.
func (r *Runner) ActiveVUs() int64 { return r.active.Load() }

// Run starts the VUs and blocks until all of them have returned.
//
// New iterations start until ctx is done, the duration elapses or the iteration
// budget is spent. Iterations already in flight when the duration elapses keep
// running for up to GracefulStop; cancelling ctx cuts them off immediately.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	r.state.Store(int32(StateRunning))
	defer r.state.Store(int32(StateStopped))

	// iterCtx is what in-flight iterations see; the duration deadline never touches it.
	iterCtx, cancelIter := context.WithCancel(ctx)
	defer cancelIter()

	schedCtx, cancelSched := context.WithCancel(ctx)
	defer cancelSched()
	if r.opt.Duration > 0 {
		var cancelDeadline context.CancelFunc
		schedCtx, cancelDeadline = context.WithTimeout(schedCtx, r.opt.Duration)
		defer cancelDeadline()
	}

	var limiter *rate.Limiter
	if r.opt.RatePerSecond > 0 {
		limiter = r.opt.LimiterFactory(r.opt.RatePerSecond)
	}

	var wg sync.WaitGroup
	wg.Add(r.opt.VUs)
	for i := 0; i < r.opt.VUs; i++ {
		go func(id int) {
			defer wg.Done()
			r.runVU(schedCtx, iterCtx, limiter, id)
		}(i + 1)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-schedCtx.Done():
		r.beginDrain()
		r.drain(ctx, done, cancelIter)
	}

	return Result{
		Iterations:  r.completed.Load(),
		Errors:      r.errs.Load(),
		Interrupted: r.interrupted.Load(),
		Duration:    time.Since(start),
	}
}

func (r *Runner) drain(parent context.Context, done <-chan struct{}, cancelIter context.CancelFunc) {
	if r.opt.GracefulStop <= 0 {
		cancelIter()
		<-done
		return
	}
	timer := time.NewTimer(r.opt.GracefulStop)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		cancelIter()
		<-done
	case <-parent.Done():
		<-done
	}
}

func (r *Runner) beginDrain() {
	r.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
}

func (r *Runner) runVU(schedCtx, iterCtx context.Context, limiter *rate.Limiter, id int) {
	vu := VU{ID: id}
	for {
		if schedCtx.Err() != nil {
			return
		}
		if r.opt.Iterations > 0 && r.claimed.Add(1) > int64(r.opt.Iterations) {
			r.beginDrain()
			return
		}
		if limiter != nil {
			if err := limiter.Wait(schedCtx); err != nil {
				return
			}
		}
		if r.opt.Requester == nil {
			return
		}

		r.active.Add(1)
		err := r.opt.Requester.Do(iterCtx, vu)
		r.active.Add(-1)
		vu.Iteration++

		if err != nil && iterCtx.Err() != nil && errors.Is(err, iterCtx.Err()) {
			r.interrupted.Add(1)
			continue
		}
		r.completed.Add(1)
		if err != nil {
			r.errs.Add(1)
		}
	}
}
