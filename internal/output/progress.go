package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/vuload/internal/metrics"
)

// IterationSource exposes live iteration counters, typically a *runner.Runner.
type IterationSource interface {
	Completed() int64
	ActiveVUs() int64
}

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	collector  *metrics.Collector
	iterations IterationSource
	ticker     *time.Ticker
	done       chan struct{}
	finished   chan struct{}
	writer     io.Writer
	active     int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
// iterations may be nil.
func NewProgressReporter(collector *metrics.Collector, iterations IterationSource, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector:  collector,
		iterations: iterations,
		ticker:     time.NewTicker(interval),
		done:       make(chan struct{}),
		finished:   make(chan struct{}),
		writer:     writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and ends the line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, p.line(p.collector.Elapsed()))
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) line(elapsed time.Duration) string {
	stats := p.collector.Stats(elapsed)
	line := fmt.Sprintf("\r[%s]", elapsed.Truncate(time.Second))
	if p.iterations != nil {
		line += fmt.Sprintf(" Iterations: %d | Active VUs: %d |", p.iterations.Completed(), p.iterations.ActiveVUs())
	}
	line += fmt.Sprintf(" Requests: %d | Failures: %d | RPS: %.1f",
		stats.Total, stats.Failures, stats.RequestsPerSec)
	if stats.Total > 0 {
		line += fmt.Sprintf(" | P95 %.1fms", stats.P95LatencyMs)
	}
	return line
}
