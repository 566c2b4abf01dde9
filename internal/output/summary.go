package output

import (
	"sort"
	"time"

	"github.com/torosent/vuload/internal/check"
	"github.com/torosent/vuload/internal/metrics"
	"github.com/torosent/vuload/internal/runner"
	"github.com/torosent/vuload/internal/threshold"
)

// Summary is the end-of-run report printed to stdout and kept in history.
type Summary struct {
	Target           string             `json:"target"`
	VUs              int                `json:"vus"`
	StartedAt        time.Time          `json:"started_at"`
	DurationMs       float64            `json:"duration_ms"`
	Iterations       int64              `json:"iterations"`
	IterationErrors  int64              `json:"iteration_errors"`
	Interrupted      int64              `json:"interrupted_iterations"`
	IterationsPerSec float64            `json:"iterations_per_sec"`
	Requests         metrics.Stats      `json:"http_reqs"`
	Checks           check.Summary      `json:"checks"`
	Errors           []ErrorCount       `json:"errors,omitempty"`
	Thresholds       []ThresholdOutcome `json:"thresholds,omitempty"`
}

type ErrorCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ThresholdOutcome struct {
	Expression string  `json:"expression"`
	Actual     float64 `json:"actual"`
	Pass       bool    `json:"pass"`
	Message    string  `json:"message,omitempty"`
}

// SummaryInput carries what NewSummary assembles into a Summary.
type SummaryInput struct {
	Target     string
	VUs        int
	StartedAt  time.Time
	Result     runner.Result
	Stats      metrics.Stats
	Checks     check.Summary
	Thresholds []threshold.Result
}

func NewSummary(in SummaryInput) Summary {
	s := Summary{
		Target:          in.Target,
		VUs:             in.VUs,
		StartedAt:       in.StartedAt.UTC(),
		DurationMs:      float64(in.Result.Duration) / float64(time.Millisecond),
		Iterations:      in.Result.Iterations,
		IterationErrors: in.Result.Errors,
		Interrupted:     in.Result.Interrupted,
		Requests:        in.Stats,
		Checks:          in.Checks,
	}
	if secs := in.Result.Duration.Seconds(); secs > 0 {
		s.IterationsPerSec = float64(in.Result.Iterations) / secs
	}
	s.Errors = friendlyErrors(in.Stats.Errors)
	for _, r := range in.Thresholds {
		s.Thresholds = append(s.Thresholds, ThresholdOutcome{
			Expression: r.Threshold.Raw,
			Actual:     r.Actual,
			Pass:       r.Pass,
			Message:    r.Message,
		})
	}
	return s
}

// ThresholdsPassed reports whether every threshold held. A run without thresholds passes.
func (s Summary) ThresholdsPassed() bool {
	for _, t := range s.Thresholds {
		if !t.Pass {
			return false
		}
	}
	return true
}

// friendlyErrors merges error types that share a display name and sorts by count.
func friendlyErrors(raw map[string]int) []ErrorCount {
	if len(raw) == 0 {
		return nil
	}
	merged := make(map[string]int, len(raw))
	for typ, n := range raw {
		merged[metrics.FriendlyErrorName(typ)] += n
	}
	out := make([]ErrorCount, 0, len(merged))
	for name, n := range merged {
		out = append(out, ErrorCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Name < out[j].Name
		}
		return out[i].Count > out[j].Count
	})
	return out
}
