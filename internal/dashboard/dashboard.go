// Package dashboard renders an optional live terminal view of a running load test.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/vuload/internal/check"
	"github.com/torosent/vuload/internal/metrics"
	"github.com/torosent/vuload/internal/runner"
)

// RunConfig holds run parameters for display.
type RunConfig struct {
	Target       string
	VUs          int
	Duration     time.Duration
	Iterations   int
	Rate         int
	Timeout      time.Duration
	GracefulStop time.Duration
	ConfigFile   string
}

// RunState exposes the live state of the iteration driver, typically a *runner.Runner.
type RunState interface {
	State() runner.State
	Completed() int64
	ActiveVUs() int64
}

// Dashboard renders a live terminal UI for load test metrics.
type Dashboard struct {
	collector    *metrics.Collector
	registry     *check.Registry
	run          RunState
	cfg          RunConfig
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid         *ui.Grid
	summaryPara  *widgets.Paragraph
	progress     *widgets.Gauge
	latencyPlot  *widgets.Plot
	latencyPara  *widgets.Paragraph
	rpsSparkline *widgets.SparklineGroup
	checkList    *widgets.List
	statusList   *widgets.List
}

// New creates a new Dashboard. shutdownFunc runs when the user presses q or Ctrl-C.
func New(collector *metrics.Collector, registry *check.Registry, run RunState, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		collector:    collector,
		registry:     registry,
		run:          run,
		cfg:          cfg,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
	}
	d.initWidgets()
	d.setupGrid()
	return d, nil
}

func (d *Dashboard) initWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.progress = widgets.NewGauge()
	d.progress.Title = "Progress"
	d.progress.BarColor = ui.ColorBlue
	d.progress.BorderStyle.Fg = ui.ColorCyan
	d.progress.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.latencyPlot = widgets.NewPlot()
	d.latencyPlot.Title = "Latency p50 / p95 (ms)"
	d.latencyPlot.Data = [][]float64{{0, 0}, {0, 0}}
	d.latencyPlot.LineColors = []ui.Color{ui.ColorGreen, ui.ColorYellow}
	d.latencyPlot.AxesColor = ui.ColorWhite
	d.latencyPlot.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Waiting for data..."
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	sparkline := widgets.NewSparkline()
	sparkline.Title = "Requests/s"
	sparkline.LineColor = ui.ColorBlue
	sparkline.Data = []float64{0}
	d.rpsSparkline = widgets.NewSparklineGroup(sparkline)
	d.rpsSparkline.Title = "Throughput"
	d.rpsSparkline.BorderStyle.Fg = ui.ColorCyan

	d.checkList = widgets.NewList()
	d.checkList.Title = "Checks"
	d.checkList.Rows = []string{"Awaiting data"}
	d.checkList.BorderStyle.Fg = ui.ColorCyan

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Codes"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)
	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(0.6, d.summaryPara),
			ui.NewCol(0.4, d.progress),
		),
		ui.NewRow(0.34,
			ui.NewCol(0.65, d.latencyPlot),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.2,
			ui.NewCol(1.0, d.rpsSparkline),
		),
		ui.NewRow(0.3,
			ui.NewCol(0.6, d.checkList),
			ui.NewCol(0.4, d.statusList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.loop()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()
	d.render()

	for {
		select {
		case <-d.ctx.Done():
			return
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.mu.Lock()
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				d.mu.Unlock()
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := d.collector.Elapsed()
	point := d.collector.Snapshot()
	stats := d.collector.Stats(elapsed)
	history := d.collector.History()

	state := "running"
	var completed, active int64
	if d.run != nil {
		state = d.run.State().String()
		completed = d.run.Completed()
		active = d.run.ActiveVUs()
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nState: %s | Elapsed: %s | Iterations: %d | Active VUs: %d",
		d.cfg.Target,
		formatRunParams(d.cfg),
		state,
		elapsed.Round(time.Second),
		completed,
		active,
	)

	percent, label := progressPercent(elapsed, d.cfg.Duration, completed, d.cfg.Iterations)
	d.progress.Percent = percent
	d.progress.Label = label

	p50, p95 := latencySeries(history, 100)
	d.latencyPlot.Data = [][]float64{p50, p95}

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP95:  %.2fms\nP99:  %.2fms\nMax:  %.2fms",
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P90LatencyMs,
		stats.P95LatencyMs,
		stats.P99LatencyMs,
		stats.MaxLatencyMs,
	)

	d.rpsSparkline.Sparklines[0].Data = rpsSeries(history, 200)
	d.rpsSparkline.Title = fmt.Sprintf("Throughput | Current: %.1f req/s | Overall: %.1f req/s | Failed: %.2f%%",
		point.RequestsPerSec, stats.RequestsPerSec, stats.FailureRate()*100)

	if d.registry != nil {
		d.checkList.Rows = formatCheckRows(d.registry.Summary())
	}
	d.statusList.Rows = formatStatusListRows(stats.StatusCodes)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ui.Render(d.grid)
}

// progressPercent reports progress against the duration, or against the
// iteration budget when the run is iteration-bound.
func progressPercent(elapsed, duration time.Duration, completed int64, iterations int) (int, string) {
	switch {
	case duration > 0:
		pct := int(elapsed * 100 / duration)
		if pct > 100 {
			return 100, fmt.Sprintf("%s / %s (draining)", elapsed.Round(time.Second), duration)
		}
		return pct, fmt.Sprintf("%s / %s", elapsed.Round(time.Second), duration)
	case iterations > 0:
		pct := int(completed * 100 / int64(iterations))
		if pct > 100 {
			pct = 100
		}
		return pct, fmt.Sprintf("%d / %d iterations", completed, iterations)
	default:
		return 0, elapsed.Round(time.Second).String()
	}
}

// latencySeries returns the last n p50 and p95 points. termui plots need at least two points.
func latencySeries(history []metrics.DataPoint, n int) ([]float64, []float64) {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	p50 := make([]float64, 0, len(history)+1)
	p95 := make([]float64, 0, len(history)+1)
	for _, dp := range history {
		p50 = append(p50, dp.P50LatencyMs)
		p95 = append(p95, dp.P95LatencyMs)
	}
	for len(p50) < 2 {
		p50 = append(p50, 0)
		p95 = append(p95, 0)
	}
	return p50, p95
}

func rpsSeries(history []metrics.DataPoint, n int) []float64 {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]float64, 0, len(history))
	for _, dp := range history {
		out = append(out, dp.RequestsPerSec)
	}
	if len(out) == 0 {
		out = append(out, 0)
	}
	return out
}

func formatCheckRows(s check.Summary) []string {
	if len(s.Checks) == 0 {
		return []string{"[No checks configured](fg:yellow)"}
	}
	rows := make([]string, 0, len(s.Checks)+1)
	for _, c := range s.Checks {
		color := "green"
		mark := "✓"
		if c.Fails > 0 {
			color = "red"
			mark = "✗"
		}
		rows = append(rows, fmt.Sprintf("[%s %s](fg:%s) ✓ %d / ✗ %d (%.2f%%)", mark, c.Name, color, c.Passes, c.Fails, c.Rate()*100))
	}
	rows = append(rows, fmt.Sprintf("checks rate: %.2f%%", s.Rate()*100))
	return rows
}

func formatStatusListRows(codes map[string]int) []string {
	rows := metrics.FlattenStatusBuckets(codes)
	if len(rows) == 0 {
		return []string{"[No responses yet](fg:yellow)"}
	}
	if len(rows) > 10 {
		rows = rows[:10]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		color := "green"
		if strings.HasPrefix(row.Code, "4") || strings.HasPrefix(row.Code, "5") {
			color = "red"
		}
		formatted = append(formatted, fmt.Sprintf("[%s](fg:%s) %d", row.Code, color, row.Count))
	}
	return formatted
}

func formatRunParams(cfg RunConfig) string {
	var parts []string
	if cfg.VUs > 0 {
		parts = append(parts, fmt.Sprintf("VUs: %d", cfg.VUs))
	}
	if cfg.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", cfg.Duration))
	}
	if cfg.Iterations > 0 {
		parts = append(parts, fmt.Sprintf("Iterations: %d", cfg.Iterations))
	}
	if cfg.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", cfg.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}
	if cfg.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", cfg.Timeout))
	}
	if cfg.GracefulStop > 0 {
		parts = append(parts, fmt.Sprintf("Graceful stop: %s", cfg.GracefulStop))
	}
	if cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", cfg.ConfigFile))
	}
	return strings.Join(parts, " | ")
}
