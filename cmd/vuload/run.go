package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/torosent/vuload/internal/check"
	"github.com/torosent/vuload/internal/config"
	"github.com/torosent/vuload/internal/dashboard"
	"github.com/torosent/vuload/internal/history"
	"github.com/torosent/vuload/internal/httpclient"
	"github.com/torosent/vuload/internal/metrics"
	"github.com/torosent/vuload/internal/output"
	"github.com/torosent/vuload/internal/runner"
	"github.com/torosent/vuload/internal/target"
	"github.com/torosent/vuload/internal/threshold"
	"github.com/torosent/vuload/internal/tracing"
	"github.com/torosent/vuload/internal/workload"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func runLoad(parent context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	sampler, err := target.NewSampler(cfg.IDMin, cfg.IDMax, cfg.Seed)
	if err != nil {
		return err
	}
	tmpl, err := target.ParseTemplate(cfg.Target)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var runID string
	if cfg.History.Enabled {
		if runID, err = history.NewID(time.Now()); err != nil {
			return err
		}
	}

	provider, err := tracing.Init(ctx, cfg.Tracing, tracing.Run{Target: cfg.Target, VUs: cfg.VUs, ID: runID})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "[vuload] tracing shutdown: %v\n", err)
		}
	}()

	builder := httpclient.NewRequestBuilder()
	if provider.ShouldPropagate() {
		builder = builder.WithInjector(tracing.HeaderPropagator{})
	}

	checks := toChecks(cfg.Checks)
	registry := check.NewRegistry(checks)
	collector := metrics.NewCollector()

	opts := workload.Options{
		Client:        httpclient.NewClient(cfg.Timeout, cfg.VUs),
		Builder:       builder,
		Targets:       target.NewGenerator(sampler, tmpl),
		Route:         routeOf(cfg.Target),
		Checks:        checks,
		Registry:      registry,
		Collector:     collector,
		NetworkErrors: cfg.NetworkErrors,
	}
	if provider.Enabled() {
		opts.Tracer = provider.Tracer()
	}
	wl, err := workload.New(opts)
	if err != nil {
		return err
	}

	var requester runner.Requester = wl
	if cfg.LogErrors {
		requester = runner.WithLogging(requester, runner.NewWriterLogger(stderr))
	}

	r := runner.New(runner.Options{
		VUs:           cfg.VUs,
		Iterations:    cfg.Iterations,
		Duration:      cfg.Duration,
		GracefulStop:  cfg.GracefulStop,
		RatePerSecond: cfg.Rate,
		Requester:     requester,
	})

	stopLive := func() {}
	if cfg.Dashboard {
		dash, err := dashboard.New(collector, registry, r, dashboard.RunConfig{
			Target:       cfg.Target,
			VUs:          cfg.VUs,
			Duration:     cfg.Duration,
			Iterations:   cfg.Iterations,
			Rate:         cfg.Rate,
			Timeout:      cfg.Timeout,
			GracefulStop: cfg.GracefulStop,
			ConfigFile:   cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
		stopLive = dash.Stop
	} else if !cfg.JSONOutput {
		progress := output.NewProgressReporter(collector, r, progressInterval, stdout)
		progress.Start()
		stopLive = progress.Stop
	}

	startedAt := time.Now()
	collector.Start()
	result := r.Run(ctx)
	stopLive()

	stats := collector.Stats(result.Duration)
	checkSummary := registry.Summary()
	outcomes := threshold.NewEvaluator(thresholds).Evaluate(threshold.Summary{
		Stats:      stats,
		Checks:     checkSummary,
		Iterations: result.Iterations,
		Duration:   result.Duration,
	})

	summary := output.NewSummary(output.SummaryInput{
		Target:     cfg.Target,
		VUs:        cfg.VUs,
		StartedAt:  startedAt,
		Result:     result,
		Stats:      stats,
		Checks:     checkSummary,
		Thresholds: outcomes,
	})

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, summary); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, summary)
	}

	if cfg.History.Enabled {
		saveHistory(cfg, runID, summary, stderr)
	}

	if !summary.ThresholdsPassed() {
		return errThresholdsFailed
	}
	return nil
}

// saveHistory records the run. A history failure is reported but does not fail the run.
func saveHistory(cfg config.Config, id string, summary output.Summary, stderr io.Writer) {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(stderr, "[vuload] history: %v\n", err)
		return
	}
	rec, err := store.Save(context.Background(), history.Record{
		ID:               id,
		StartedAt:        summary.StartedAt,
		Config:           history.SnapshotConfig(cfg),
		Summary:          summary,
		ThresholdsPassed: summary.ThresholdsPassed(),
	})
	if err != nil {
		fmt.Fprintf(stderr, "[vuload] history: %v\n", err)
		return
	}
	fmt.Fprintf(stderr, "[vuload] run saved as %s (%s)\n", rec.ID, store.Path())
}

func toChecks(cfgs []config.CheckConfig) []check.Check {
	checks := make([]check.Check, 0, len(cfgs))
	for _, c := range cfgs {
		checks = append(checks, check.Check{Name: c.Name, Status: c.Status, BodyPath: c.BodyPath})
	}
	return checks
}

// routeOf returns the templated path, used to name spans without the sampled id.
func routeOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return strings.ReplaceAll(u.Path, "%7Bid%7D", config.IDPlaceholder)
}
