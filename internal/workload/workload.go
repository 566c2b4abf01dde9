// Package workload implements the iteration each VU runs: sample an id, GET the
// resource, evaluate checks and record metrics.
package workload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/vuload/internal/check"
	"github.com/torosent/vuload/internal/config"
	"github.com/torosent/vuload/internal/httpclient"
	"github.com/torosent/vuload/internal/metrics"
	"github.com/torosent/vuload/internal/runner"
	"github.com/torosent/vuload/internal/target"
	"github.com/torosent/vuload/internal/tracing"
)

// Options wire an HTTP workload. Client, Builder, Targets, Registry and
// Collector are required. Tracer is optional.
type Options struct {
	Client        *http.Client
	Builder       *httpclient.RequestBuilder
	Targets       *target.Generator
	Route         string
	Checks        []check.Check
	Registry      *check.Registry
	Collector     *metrics.Collector
	NetworkErrors config.NetworkErrorPolicy
	Tracer        trace.Tracer
}

// HTTP is the per-iteration behavior. It implements runner.Requester.
type HTTP struct {
	client    *http.Client
	builder   *httpclient.RequestBuilder
	targets   *target.Generator
	route     string
	checks    []check.Check
	registry  *check.Registry
	collector *metrics.Collector
	policy    config.NetworkErrorPolicy
	tracer    trace.Tracer
}

func New(opts Options) (*HTTP, error) {
	switch {
	case opts.Client == nil:
		return nil, errors.New("workload: http client is required")
	case opts.Builder == nil:
		return nil, errors.New("workload: request builder is required")
	case opts.Targets == nil:
		return nil, errors.New("workload: target generator is required")
	case opts.Registry == nil:
		return nil, errors.New("workload: check registry is required")
	case opts.Collector == nil:
		return nil, errors.New("workload: metrics collector is required")
	}
	policy := opts.NetworkErrors
	if policy == "" {
		policy = config.NetworkErrorsFail
	}
	return &HTTP{
		client:    opts.Client,
		builder:   opts.Builder,
		targets:   opts.Targets,
		route:     opts.Route,
		checks:    opts.Checks,
		registry:  opts.Registry,
		collector: opts.Collector,
		policy:    policy,
		tracer:    opts.Tracer,
	}, nil
}

// Do runs one iteration. It returns a *runner.NetworkError when no response
// arrived and a *check.FailedError when any check failed. An iteration whose
// context was cancelled records nothing.
func (h *HTTP) Do(ctx context.Context, vu runner.VU) (err error) {
	tgt := h.targets.Next()

	var status int
	if h.tracer != nil {
		var span trace.Span
		ctx, span = tracing.StartIterationSpan(ctx, h.tracer, h.route, tgt.URL, vu.ID, vu.Iteration)
		defer func() {
			var attrs []attribute.KeyValue
			if status > 0 {
				attrs = append(attrs, tracing.StatusCode(status))
			}
			tracing.EndSpan(span, err, attrs...)
		}()
	}

	req, err := h.builder.Build(ctx, tgt.URL)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return h.networkError(ctx, tgt.URL, time.Since(start), err)
	}
	status = resp.StatusCode
	body, err := httpclient.ReadBody(resp, httpclient.MaxBodyBytes)
	latency := time.Since(start)
	if err != nil {
		return h.networkError(ctx, tgt.URL, latency, err)
	}

	h.collector.RecordRequest(latency, nil, &metrics.RequestMetadata{Method: req.Method, StatusCode: status})

	results := check.Evaluate(&check.Response{Status: status, Body: body}, h.checks)
	h.registry.Record(results)
	if failed := check.Failed(results); len(failed) > 0 {
		return &check.FailedError{URL: tgt.URL, Status: status, Checks: failed}
	}
	return nil
}

func (h *HTTP) networkError(ctx context.Context, url string, latency time.Duration, cause error) error {
	netErr := &runner.NetworkError{URL: url, Err: cause}
	if ctx.Err() != nil {
		return netErr
	}
	h.collector.RecordRequest(latency, netErr, nil)
	if h.policy == config.NetworkErrorsFail {
		h.registry.Record(check.Evaluate(nil, h.checks))
	}
	return netErr
}
