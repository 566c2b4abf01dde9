package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	shardCount = 32

	// Track latencies from 1µs up to 60s with 3 significant figures.
	histMin     = 1
	histMax     = 60_000_000
	histSigFigs = 3

	maxHistory = 3600
)

// RequestMetadata describes the response a request produced.
// StatusCode is 0 when no response was received.
type RequestMetadata struct {
	Method     string
	StatusCode int
}

type bucket struct {
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	errorsByType map[string]int64
	statusCodes  map[int]int64
}

func newBucket() *bucket {
	return &bucket{
		hist:         hdrhistogram.New(histMin, histMax, histSigFigs),
		errorsByType: make(map[string]int64),
		statusCodes:  make(map[int]int64),
	}
}

func (b *bucket) record(latency time.Duration, failed bool, errType string, status int) {
	if latency > 0 {
		us := latency.Microseconds()
		if us < b.hist.LowestTrackableValue() {
			us = b.hist.LowestTrackableValue()
		}
		if us > b.hist.HighestTrackableValue() {
			us = b.hist.HighestTrackableValue()
		}
		_ = b.hist.RecordValue(us)
	}
	b.sumLatency += latency
	if b.minLatency == 0 || latency < b.minLatency {
		b.minLatency = latency
	}
	if latency > b.maxLatency {
		b.maxLatency = latency
	}

	if failed {
		b.failures++
	} else {
		b.successes++
	}
	if errType != "" {
		b.errorsByType[errType]++
	}
	if status > 0 {
		b.statusCodes[status]++
	}
}

func (b *bucket) mergeInto(dst *bucket) {
	dst.hist.Merge(b.hist)
	dst.successes += b.successes
	dst.failures += b.failures
	dst.sumLatency += b.sumLatency
	if b.minLatency > 0 && (dst.minLatency == 0 || b.minLatency < dst.minLatency) {
		dst.minLatency = b.minLatency
	}
	if b.maxLatency > dst.maxLatency {
		dst.maxLatency = b.maxLatency
	}
	for k, v := range b.errorsByType {
		dst.errorsByType[k] += v
	}
	for k, v := range b.statusCodes {
		dst.statusCodes[k] += v
	}
}

type shard struct {
	mu     sync.Mutex
	bucket *bucket
}

// shardedStats spreads writes across independent locks so concurrent VUs rarely contend.
type shardedStats struct {
	shards [shardCount]*shard
	next   atomic.Uint32
}

func newShardedStats() *shardedStats {
	s := &shardedStats{}
	for i := range s.shards {
		s.shards[i] = &shard{bucket: newBucket()}
	}
	return s
}

func (s *shardedStats) record(latency time.Duration, failed bool, errType string, status int) {
	sh := s.shards[s.next.Add(1)%shardCount]
	sh.mu.Lock()
	sh.bucket.record(latency, failed, errType, status)
	sh.mu.Unlock()
}

func (s *shardedStats) merge() *bucket {
	total := newBucket()
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.bucket.mergeInto(total)
		sh.mu.Unlock()
	}
	return total
}

// Collector records per-request metrics in a thread-safe manner.
type Collector struct {
	stats *shardedStats
	start time.Time

	historyMu    sync.Mutex
	history      []DataPoint
	lastSnapshot time.Time
	lastTotal    int64
}

// Stats represents aggregated metrics.
type Stats struct {
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P95Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	StatusCodes map[string]int `json:"status_codes,omitempty"`
	Errors      map[string]int `json:"-"`
}

// FailureRate is the share of requests that failed, the http_req_failed rate.
func (s Stats) FailureRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Total)
}

// DataPoint is one sample of the time series kept by Snapshot.
type DataPoint struct {
	Timestamp      time.Time
	TotalRequests  int64
	Failures       int64
	RequestsPerSec float64
	P50LatencyMs   float64
	P95LatencyMs   float64
	P99LatencyMs   float64
}

func NewCollector() *Collector {
	now := time.Now()
	return &Collector{
		stats:        newShardedStats(),
		start:        now,
		lastSnapshot: now,
	}
}

// Start marks the beginning of the measured run.
func (c *Collector) Start() {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	c.start = time.Now()
	c.lastSnapshot = c.start
}

// RecordRequest records a single request's latency and outcome. A request failed
// when err is non-nil or the response status is 400 or above.
func (c *Collector) RecordRequest(latency time.Duration, err error, meta *RequestMetadata) {
	status := 0
	if meta != nil {
		status = meta.StatusCode
	}
	failed := err != nil || status >= 400

	errType := ""
	if err != nil {
		errType = errorType(err)
	} else if status >= 400 {
		errType = "HTTP " + strconv.Itoa(status)
	}
	c.stats.record(latency, failed, errType, status)
}

// errorType names the cause of err, looking through URL wrappers.
func errorType(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "context.deadlineExceededError"
	}
	if errors.Is(err, context.Canceled) {
		return "context.Canceled"
	}
	for {
		var urlErr *url.Error
		if !errors.As(err, &urlErr) || urlErr.Err == nil {
			break
		}
		err = urlErr.Err
	}
	name := fmt.Sprintf("%T", err)
	if len(name) > 30 {
		name = name[len(name)-30:]
	}
	return name
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	b := c.stats.merge()

	total := b.successes + b.failures
	stats := Stats{
		Total:      total,
		Successes:  b.successes,
		Failures:   b.failures,
		MinLatency: b.minLatency,
		MaxLatency: b.maxLatency,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(b.sumLatency) / total)
	}

	if b.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(b.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(b.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P95Latency = time.Duration(b.hist.ValueAtQuantile(95)) * time.Microsecond
		stats.P99Latency = time.Duration(b.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinLatencyMs = toMs(stats.MinLatency)
	stats.MaxLatencyMs = toMs(stats.MaxLatency)
	stats.MeanLatencyMs = toMs(stats.MeanLatency)
	stats.P50LatencyMs = toMs(stats.P50Latency)
	stats.P90LatencyMs = toMs(stats.P90Latency)
	stats.P95LatencyMs = toMs(stats.P95Latency)
	stats.P99LatencyMs = toMs(stats.P99Latency)

	stats.Duration = elapsed
	stats.DurationMs = toMs(elapsed)
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(b.statusCodes) > 0 {
		stats.StatusCodes = make(map[string]int, len(b.statusCodes))
		for code, n := range b.statusCodes {
			stats.StatusCodes[strconv.Itoa(code)] = int(n)
		}
	}
	if len(b.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(b.errorsByType))
		for k, v := range b.errorsByType {
			stats.Errors[k] = int(v)
		}
	}

	return stats
}

// Elapsed is the time since Start, or since NewCollector when Start was never
// called.
func (c *Collector) Elapsed() time.Duration {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	return time.Since(c.start)
}

// Snapshot appends a point to the time series. RequestsPerSec in the point is
// measured over the interval since the previous snapshot.
func (c *Collector) Snapshot() DataPoint {
	now := time.Now()
	stats := c.Stats(0)

	c.historyMu.Lock()
	defer c.historyMu.Unlock()

	dp := DataPoint{
		Timestamp:     now,
		TotalRequests: stats.Total,
		Failures:      stats.Failures,
		P50LatencyMs:  stats.P50LatencyMs,
		P95LatencyMs:  stats.P95LatencyMs,
		P99LatencyMs:  stats.P99LatencyMs,
	}
	if interval := now.Sub(c.lastSnapshot); interval > 0 {
		dp.RequestsPerSec = float64(stats.Total-c.lastTotal) / interval.Seconds()
	}
	c.lastSnapshot = now
	c.lastTotal = stats.Total

	c.history = append(c.history, dp)
	if len(c.history) > maxHistory {
		c.history = c.history[len(c.history)-maxHistory:]
	}
	return dp
}

// History returns a copy of the recorded time series.
func (c *Collector) History() []DataPoint {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	return append([]DataPoint(nil), c.history...)
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
