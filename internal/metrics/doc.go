// Package metrics collects request latency and outcome counts for a load run.
//
// # Collector
//
// The central [Collector] type aggregates metrics from all VUs:
//
//	collector := metrics.NewCollector()
//	collector.Start()
//
//	collector.RecordRequest(latency, err, &metrics.RequestMetadata{
//		Method:     "GET",
//		StatusCode: 200,
//	})
//
//	stats := collector.Stats(elapsed)
//
// A request counts as failed when it returned an error or a status of 400 or
// above. [Stats.FailureRate] is the ratio thresholds see as http_req_failed:rate.
//
// # Statistics
//
// [Stats] carries request counts, latency percentiles (P50, P90, P95, P99)
// from an HDR histogram, requests per second, per-status counts and an error
// breakdown keyed by error type.
//
// # Time-Series Data
//
// Call [Collector.Snapshot] periodically and read the series back with
// [Collector.History]; the dashboard plots it.
//
// # Thread Safety
//
// Writes are spread over sharded locks so VUs rarely contend. It is safe to
// call RecordRequest from multiple goroutines.
package metrics
