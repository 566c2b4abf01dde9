package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/torosent/vuload/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, s Summary) {
	stats := s.Requests

	fmt.Fprintln(w, "\n--- Load Test Results ---")
	fmt.Fprintf(w, "Target:            %s\n", s.Target)
	fmt.Fprintf(w, "VUs:               %d\n", s.VUs)
	fmt.Fprintf(w, "Duration:          %s\n", msDuration(s.DurationMs))
	fmt.Fprintf(w, "Iterations:        %d (%.2f/s)\n", s.Iterations, s.IterationsPerSec)
	fmt.Fprintf(w, "Iteration Errors:  %d\n", s.IterationErrors)
	if s.Interrupted > 0 {
		fmt.Fprintf(w, "Interrupted:       %d\n", s.Interrupted)
	}

	fmt.Fprintln(w, "\nChecks:")
	if len(s.Checks.Checks) == 0 {
		fmt.Fprintln(w, "  None")
	}
	for _, c := range s.Checks.Checks {
		mark := "✓"
		if c.Fails > 0 {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %s: %d passed, %d failed (%.2f%%)\n", mark, c.Name, c.Passes, c.Fails, c.Rate()*100)
	}
	fmt.Fprintf(w, "  checks rate:     %.2f%%\n", s.Checks.Rate()*100)

	fmt.Fprintln(w, "\nHTTP Requests:")
	fmt.Fprintf(w, "  Total:           %d\n", stats.Total)
	fmt.Fprintf(w, "  Successful:      %d\n", stats.Successes)
	fmt.Fprintf(w, "  Failed:          %d (%.2f%%)\n", stats.Failures, stats.FailureRate()*100)
	fmt.Fprintf(w, "  Requests/sec:    %.2f\n", stats.RequestsPerSec)

	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", msDuration(stats.MinLatencyMs))
	fmt.Fprintf(w, "  Max:             %s\n", msDuration(stats.MaxLatencyMs))
	fmt.Fprintf(w, "  Mean:            %s\n", msDuration(stats.MeanLatencyMs))
	fmt.Fprintf(w, "  P50:             %s\n", msDuration(stats.P50LatencyMs))
	fmt.Fprintf(w, "  P90:             %s\n", msDuration(stats.P90LatencyMs))
	fmt.Fprintf(w, "  P95:             %s\n", msDuration(stats.P95LatencyMs))
	fmt.Fprintf(w, "  P99:             %s\n", msDuration(stats.P99LatencyMs))

	if len(stats.StatusCodes) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		writeStatusBuckets(w, stats.StatusCodes, "  ")
	}

	if len(s.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s: %d\n", e.Name, e.Count)
		}
	}

	if len(s.Thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, t := range s.Thresholds {
			fmt.Fprintf(w, "  %s\n", t.Message)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func writeStatusBuckets(w io.Writer, codes map[string]int, indent string) {
	rows := metrics.FlattenStatusBuckets(codes)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s: %d\n", indent, row.Code, row.Count)
	}
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond)).Round(time.Microsecond)
}
