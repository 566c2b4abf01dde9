package metrics_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/torosent/vuload/internal/metrics"
)

func ok200() *metrics.RequestMetadata {
	return &metrics.RequestMetadata{Method: "GET", StatusCode: 200}
}

func TestCollectorLatencyStats(t *testing.T) {
	c := metrics.NewCollector()

	c.RecordRequest(10*time.Millisecond, nil, ok200())
	c.RecordRequest(20*time.Millisecond, nil, ok200())
	c.RecordRequest(30*time.Millisecond, nil, ok200())
	c.RecordRequest(40*time.Millisecond, nil, ok200())
	c.RecordRequest(50*time.Millisecond, nil, ok200())

	stats := c.Stats(0)

	if stats.Total != 5 {
		t.Errorf("expected total 5, got %d", stats.Total)
	}
	if stats.Successes != 5 {
		t.Errorf("expected successes 5, got %d", stats.Successes)
	}
	if stats.Failures != 0 {
		t.Errorf("expected failures 0, got %d", stats.Failures)
	}
	if stats.MinLatency != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %s", stats.MinLatency)
	}
	if stats.MaxLatency != 50*time.Millisecond {
		t.Errorf("expected max 50ms, got %s", stats.MaxLatency)
	}
	if stats.MeanLatency != 30*time.Millisecond {
		t.Errorf("expected mean 30ms, got %s", stats.MeanLatency)
	}
	if stats.StatusCodes["200"] != 5 {
		t.Errorf("expected 5 responses with status 200, got %v", stats.StatusCodes)
	}
}

func TestPercentilesCalculations(t *testing.T) {
	c := metrics.NewCollector()

	// 100 samples: 1ms, 2ms, ..., 100ms.
	for i := 1; i <= 100; i++ {
		c.RecordRequest(time.Duration(i)*time.Millisecond, nil, nil)
	}

	stats := c.Stats(0)

	if stats.P50Latency < 49*time.Millisecond || stats.P50Latency > 51*time.Millisecond {
		t.Errorf("expected P50 ~50ms, got %s", stats.P50Latency)
	}
	if stats.P90Latency < 89*time.Millisecond || stats.P90Latency > 91*time.Millisecond {
		t.Errorf("expected P90 ~90ms, got %s", stats.P90Latency)
	}
	if stats.P95Latency < 94*time.Millisecond || stats.P95Latency > 96*time.Millisecond {
		t.Errorf("expected P95 ~95ms, got %s", stats.P95Latency)
	}
	if stats.P99Latency < 98*time.Millisecond || stats.P99Latency > 100*time.Millisecond {
		t.Errorf("expected P99 ~99ms, got %s", stats.P99Latency)
	}
}

func TestFailureClassification(t *testing.T) {
	c := metrics.NewCollector()

	c.RecordRequest(5*time.Millisecond, nil, ok200())
	c.RecordRequest(5*time.Millisecond, nil, &metrics.RequestMetadata{StatusCode: 404})
	c.RecordRequest(5*time.Millisecond, nil, &metrics.RequestMetadata{StatusCode: 503})
	c.RecordRequest(5*time.Millisecond, &url.Error{Op: "Get", URL: "http://x/1", Err: errors.New("connection refused")}, nil)

	stats := c.Stats(time.Second)
	if stats.Total != 4 || stats.Failures != 3 || stats.Successes != 1 {
		t.Fatalf("total=%d failures=%d successes=%d", stats.Total, stats.Failures, stats.Successes)
	}
	if got := stats.FailureRate(); got != 0.75 {
		t.Errorf("FailureRate() = %f, want 0.75", got)
	}
	if stats.Errors["HTTP 404"] != 1 || stats.Errors["HTTP 503"] != 1 {
		t.Errorf("Errors = %v, want HTTP 404 and HTTP 503", stats.Errors)
	}
	if stats.Errors["*errors.errorString"] != 1 {
		t.Errorf("Errors = %v, want the url.Error cause", stats.Errors)
	}
	if len(stats.StatusCodes) != 3 {
		t.Errorf("StatusCodes = %v, want 200/404/503 only", stats.StatusCodes)
	}
}

func TestElapsedRestartsOnStart(t *testing.T) {
	c := metrics.NewCollector()
	time.Sleep(30 * time.Millisecond)
	if got := c.Elapsed(); got < 30*time.Millisecond {
		t.Fatalf("Elapsed() before Start = %v, want >= 30ms", got)
	}

	c.Start()
	if got := c.Elapsed(); got >= 30*time.Millisecond {
		t.Errorf("Elapsed() after Start = %v, want the clock reset", got)
	}
}

func TestDeadlineErrorsGrouped(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordRequest(time.Second, fmt.Errorf("GET: %w", context.DeadlineExceeded), nil)

	stats := c.Stats(time.Second)
	if stats.Errors["context.deadlineExceededError"] != 1 {
		t.Fatalf("Errors = %v", stats.Errors)
	}
	if got := metrics.FriendlyErrorName("context.deadlineExceededError"); got != "Context deadline exceeded" {
		t.Errorf("FriendlyErrorName() = %q", got)
	}
}

func TestJSONReportSchema(t *testing.T) {
	c := metrics.NewCollector()

	c.RecordRequest(15*time.Millisecond, nil, ok200())
	c.RecordRequest(25*time.Millisecond, errors.New("boom"), nil)

	stats := c.Stats(100 * time.Millisecond)

	data, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("failed to marshal stats: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	requiredFields := []string{"total", "successes", "failures", "min_latency_ms", "max_latency_ms", "mean_latency_ms", "p50_latency_ms", "p90_latency_ms", "p95_latency_ms", "p99_latency_ms", "duration_ms", "requests_per_sec", "status_codes"}
	for _, field := range requiredFields {
		if _, ok := parsed[field]; !ok {
			t.Errorf("missing field %q in JSON output", field)
		}
	}
	if _, exists := parsed["errors"]; exists {
		t.Errorf("errors field should not be in JSON output")
	}
}

func TestConcurrentRecording(t *testing.T) {
	c := metrics.NewCollector()

	var wg sync.WaitGroup
	workers := 10
	recordsPerWorker := 100

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerWorker; j++ {
				c.RecordRequest(time.Millisecond, nil, nil)
			}
		}()
	}
	wg.Wait()

	stats := c.Stats(0)
	expected := workers * recordsPerWorker
	if stats.Total != int64(expected) {
		t.Errorf("expected total %d, got %d", expected, stats.Total)
	}
}

func TestSnapshotHistory(t *testing.T) {
	c := metrics.NewCollector()
	c.Start()

	for i := 0; i < 10; i++ {
		c.RecordRequest(time.Millisecond, nil, ok200())
	}
	time.Sleep(10 * time.Millisecond)
	first := c.Snapshot()
	if first.TotalRequests != 10 || first.RequestsPerSec <= 0 {
		t.Fatalf("first snapshot = %+v", first)
	}

	time.Sleep(5 * time.Millisecond)
	second := c.Snapshot()
	if second.TotalRequests != 10 || second.RequestsPerSec != 0 {
		t.Fatalf("second snapshot = %+v, want no new requests", second)
	}

	if got := c.History(); len(got) != 2 {
		t.Fatalf("History() len = %d, want 2", len(got))
	}
}
