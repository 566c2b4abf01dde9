// Package runner is the iteration driver for vuload.
//
// A Runner starts a fixed number of virtual users (VUs), each a goroutine that
// calls its [Requester] back to back until one of the following happens:
//   - the scheduling deadline (Options.Duration) elapses
//   - the shared iteration budget (Options.Iterations) is spent
//   - the parent context is cancelled
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		VUs:          50,
//		Duration:     20 * time.Second,
//		GracefulStop: 30 * time.Second,
//		Requester:    myRequester,
//	})
//	result := r.Run(ctx)
//
// # Drain
//
// When the deadline elapses no new iteration starts, but iterations already in
// flight keep their context for up to Options.GracefulStop. Iterations still
// running after that are cancelled and counted in Result.Interrupted.
//
// # Lifecycle
//
// [Runner.State] moves through [StateIdle], [StateRunning], [StateDraining]
// and [StateStopped].
//
// # Middleware
//
//   - [WithLogging]: log iteration failures through a [FailureLogger]
//
// Iterations are never retried.
//
// # Error Handling
//
// Transport failures are reported as [*NetworkError]:
//
//	var netErr *runner.NetworkError
//	if errors.As(err, &netErr) {
//		fmt.Printf("GET %s failed: %v\n", netErr.URL, netErr.Err)
//	}
package runner
