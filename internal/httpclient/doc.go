// Package httpclient builds the HTTP client and requests used by each iteration.
//
// [NewClient] returns a client with connection pooling sized for the VU count:
//
//	client := httpclient.NewClient(60*time.Second, vus)
//
// [RequestBuilder] produces a bare GET for a target URL, optionally decorated
// by a [HeaderInjector] for trace propagation:
//
//	builder := httpclient.NewRequestBuilder().WithInjector(propagator)
//	req, err := builder.Build(ctx, "http://localhost:8000/events/42")
//
// [ReadBody] reads a bounded prefix of the response body and drains the rest.
package httpclient
