package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/torosent/vuload/internal/check"
	"github.com/torosent/vuload/internal/metrics"
)

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name       string
		elapsed    time.Duration
		duration   time.Duration
		completed  int64
		iterations int
		wantPct    int
		wantLabel  string
	}{
		{"half of duration", 10 * time.Second, 20 * time.Second, 0, 0, 50, "10s / 20s"},
		{"draining", 25 * time.Second, 20 * time.Second, 0, 0, 100, "(draining)"},
		{"iteration bound", 3 * time.Second, 0, 25, 100, 25, "25 / 100 iterations"},
		{"unbounded", 3 * time.Second, 0, 0, 0, 0, "3s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, label := progressPercent(tt.elapsed, tt.duration, tt.completed, tt.iterations)
			if pct != tt.wantPct {
				t.Errorf("percent = %d, want %d", pct, tt.wantPct)
			}
			if !strings.Contains(label, tt.wantLabel) {
				t.Errorf("label = %q, want it to contain %q", label, tt.wantLabel)
			}
		})
	}
}

func TestLatencySeries(t *testing.T) {
	p50, p95 := latencySeries(nil, 10)
	if len(p50) != 2 || len(p95) != 2 {
		t.Fatalf("empty history should pad to two points, got %d/%d", len(p50), len(p95))
	}

	history := make([]metrics.DataPoint, 0, 20)
	for i := 0; i < 20; i++ {
		history = append(history, metrics.DataPoint{P50LatencyMs: float64(i), P95LatencyMs: float64(i * 2)})
	}
	p50, p95 = latencySeries(history, 5)
	if len(p50) != 5 || p50[0] != 15 || p95[4] != 38 {
		t.Errorf("latencySeries() = %v / %v", p50, p95)
	}
}

func TestRPSSeries(t *testing.T) {
	if got := rpsSeries(nil, 10); len(got) != 1 || got[0] != 0 {
		t.Errorf("rpsSeries(nil) = %v", got)
	}
	got := rpsSeries([]metrics.DataPoint{{RequestsPerSec: 1}, {RequestsPerSec: 2}, {RequestsPerSec: 3}}, 2)
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("rpsSeries() = %v", got)
	}
}

func TestFormatCheckRows(t *testing.T) {
	rows := formatCheckRows(check.Summary{})
	if len(rows) != 1 || !strings.Contains(rows[0], "No checks") {
		t.Errorf("empty rows = %v", rows)
	}

	rows = formatCheckRows(check.Summary{
		Checks: []check.CheckSummary{
			{Name: "status is 200", Passes: 99, Fails: 1},
			{Name: "has count", Passes: 100},
		},
		Passes: 199,
		Fails:  1,
	})
	if len(rows) != 3 {
		t.Fatalf("rows = %v, want 3", rows)
	}
	if !strings.Contains(rows[0], "fg:red") || !strings.Contains(rows[0], "status is 200") {
		t.Errorf("failing check row = %q", rows[0])
	}
	if !strings.Contains(rows[1], "fg:green") {
		t.Errorf("passing check row = %q", rows[1])
	}
	if !strings.Contains(rows[2], "99.50%") {
		t.Errorf("rate row = %q", rows[2])
	}
}

func TestFormatStatusListRows(t *testing.T) {
	rows := formatStatusListRows(nil)
	if len(rows) != 1 || !strings.Contains(rows[0], "No responses") {
		t.Errorf("empty rows = %v", rows)
	}

	rows = formatStatusListRows(map[string]int{"200": 90, "503": 10})
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0] != "[200](fg:green) 90" {
		t.Errorf("rows[0] = %q", rows[0])
	}
	if rows[1] != "[503](fg:red) 10" {
		t.Errorf("rows[1] = %q", rows[1])
	}
}

func TestFormatRunParams(t *testing.T) {
	got := formatRunParams(RunConfig{
		VUs:          50,
		Duration:     20 * time.Second,
		Timeout:      time.Minute,
		GracefulStop: 30 * time.Second,
	})
	for _, want := range []string{"VUs: 50", "Duration: 20s", "Rate: unlimited", "Timeout: 1m0s", "Graceful stop: 30s"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatRunParams() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "Iterations") || strings.Contains(got, "Config") {
		t.Errorf("formatRunParams() = %q, unexpected optional fields", got)
	}
}
