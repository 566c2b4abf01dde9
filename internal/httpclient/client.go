package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

// HeaderInjector adds propagation headers, such as W3C trace context, to an outgoing request.
type HeaderInjector interface {
	InjectHTTPHeaders(ctx context.Context, headers http.Header)
}

// RequestBuilder builds the per-iteration GET. No body and no custom headers are
// sent unless an injector is attached.
type RequestBuilder struct {
	method   string
	injector HeaderInjector
}

func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{method: http.MethodGet}
}

// WithInjector returns a copy of the builder that runs injector on every request.
func (b *RequestBuilder) WithInjector(injector HeaderInjector) *RequestBuilder {
	clone := *b
	clone.injector = injector
	return &clone
}

func (b *RequestBuilder) Build(ctx context.Context, target string) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	req, err := http.NewRequestWithContext(ctx, b.method, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	if b.injector != nil {
		b.injector.InjectHTTPHeaders(ctx, req.Header)
	}
	return req, nil
}

// NewClient returns a client tuned for load generation. maxConnsPerHost should be
// at least the number of VUs so every VU can keep its connection alive.
func NewClient(timeout time.Duration, maxConnsPerHost int) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	if maxConnsPerHost < 32 {
		maxConnsPerHost = 32
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxConnsPerHost * 2,
		MaxIdleConnsPerHost:   maxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
