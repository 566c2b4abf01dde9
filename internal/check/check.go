// Package check evaluates named assertions against each iteration's response
// and aggregates their outcomes. A failed check never stops a run.
package check

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tidwall/gjson"
)

// Check is a named predicate over a response. A positive Status requires an exact
// status match; a non-empty BodyPath requires the gjson path to exist in the body.
// When both are set both must hold.
type Check struct {
	Name     string
	Status   int
	BodyPath string
}

// Response is the part of an HTTP response that checks look at.
type Response struct {
	Status int
	Body   []byte
}

// Result is the outcome of one check for one iteration.
type Result struct {
	Name string
	Pass bool
}

func (c Check) eval(resp *Response) bool {
	if resp == nil {
		return false
	}
	if c.Status > 0 && resp.Status != c.Status {
		return false
	}
	if path := strings.TrimSpace(c.BodyPath); path != "" {
		if !gjson.ValidBytes(resp.Body) {
			return false
		}
		if !gjson.GetBytes(resp.Body, path).Exists() {
			return false
		}
	}
	return true
}

// Evaluate returns exactly one result per check, in order.
// A nil response stands for a request that never produced one and fails every check.
func Evaluate(resp *Response, checks []Check) []Result {
	results := make([]Result, len(checks))
	for i, c := range checks {
		results[i] = Result{Name: c.Name, Pass: c.eval(resp)}
	}
	return results
}

// Failed returns the names of the failing results.
func Failed(results []Result) []string {
	var names []string
	for _, r := range results {
		if !r.Pass {
			names = append(names, r.Name)
		}
	}
	return names
}

// FailedError reports the checks an iteration failed.
type FailedError struct {
	URL    string
	Status int
	Checks []string
}

func (e *FailedError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("checks failed for %s: %s", e.URL, strings.Join(e.Checks, ", "))
	}
	return fmt.Sprintf("checks failed for %s (status %d): %s", e.URL, e.Status, strings.Join(e.Checks, ", "))
}

type counter struct {
	passes atomic.Int64
	fails  atomic.Int64
}

// Registry aggregates check results across VUs.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*counter
	order    []string
}

// NewRegistry creates a registry with the given checks pre-registered so that
// they appear in the summary even if no iteration ever ran.
func NewRegistry(checks []Check) *Registry {
	r := &Registry{counters: make(map[string]*counter, len(checks))}
	for _, c := range checks {
		r.lookup(c.Name)
	}
	return r
}

func (r *Registry) lookup(name string) *counter {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; ok {
		return c
	}
	c = &counter{}
	r.counters[name] = c
	r.order = append(r.order, name)
	return c
}

// Record adds one iteration's results.
func (r *Registry) Record(results []Result) {
	for _, res := range results {
		c := r.lookup(res.Name)
		if res.Pass {
			c.passes.Add(1)
		} else {
			c.fails.Add(1)
		}
	}
}

// CheckSummary is the aggregate for a single named check.
type CheckSummary struct {
	Name   string `json:"name" yaml:"name"`
	Passes int64  `json:"passes" yaml:"passes"`
	Fails  int64  `json:"fails" yaml:"fails"`
}

// Rate is the pass ratio, or 0 when the check never ran.
func (c CheckSummary) Rate() float64 {
	total := c.Passes + c.Fails
	if total == 0 {
		return 0
	}
	return float64(c.Passes) / float64(total)
}

// Summary is the aggregate over every check.
type Summary struct {
	Checks []CheckSummary `json:"checks" yaml:"checks"`
	Passes int64          `json:"passes" yaml:"passes"`
	Fails  int64          `json:"fails" yaml:"fails"`
}

// Rate is the overall pass ratio, the checks:rate threshold metric.
func (s Summary) Rate() float64 {
	total := s.Passes + s.Fails
	if total == 0 {
		return 0
	}
	return float64(s.Passes) / float64(total)
}

// Summary snapshots the registry. Pre-registered checks come first in
// registration order, then checks first seen during the run in the order seen.
func (r *Registry) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Summary
	s.Checks = make([]CheckSummary, 0, len(r.order))
	for _, name := range r.order {
		c := r.counters[name]
		cs := CheckSummary{Name: name, Passes: c.passes.Load(), Fails: c.fails.Load()}
		s.Passes += cs.Passes
		s.Fails += cs.Fails
		s.Checks = append(s.Checks, cs)
	}
	return s
}

