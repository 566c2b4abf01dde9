// Package target produces the per-iteration request target: a uniformly
// sampled identifier and the URL built from it.
package target

import (
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Placeholder is replaced by the sampled identifier in a URL template.
const Placeholder = "{id}"

// Target is the request destination for a single iteration.
type Target struct {
	ID  int
	URL string
}

// Sampler draws integers uniformly from the closed range [Min, Max].
// It is safe for concurrent use.
type Sampler struct {
	min int
	max int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSampler creates a sampler over [min, max]. A zero seed selects a time-based seed.
func NewSampler(min, max int, seed int64) (*Sampler, error) {
	if min > max {
		return nil, fmt.Errorf("invalid id range [%d, %d]", min, max)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{
		min: min,
		max: max,
		rnd: rand.New(rand.NewSource(seed)),
	}, nil
}

// Next returns the next identifier.
func (s *Sampler) Next() int {
	span := int64(s.max) - int64(s.min) + 1
	s.mu.Lock()
	n := s.rnd.Int63n(span)
	s.mu.Unlock()
	return s.min + int(n)
}


// Template is a URL with an {id} placeholder.
type Template struct {
	raw string
}

// ParseTemplate validates that raw contains the placeholder and, once filled in,
// is an absolute http or https URL.
func ParseTemplate(raw string) (Template, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Template{}, errors.New("target template is empty")
	}
	if !strings.Contains(raw, Placeholder) {
		return Template{}, fmt.Errorf("target template %q has no %s placeholder", raw, Placeholder)
	}
	u, err := url.Parse(strings.ReplaceAll(raw, Placeholder, "1"))
	if err != nil {
		return Template{}, fmt.Errorf("parse target template: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Template{}, fmt.Errorf("target template scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return Template{}, fmt.Errorf("target template %q has no host", raw)
	}
	return Template{raw: raw}, nil
}

// Build formats id into the template.
func (t Template) Build(id int) string {
	return strings.ReplaceAll(t.raw, Placeholder, strconv.Itoa(id))
}

func (t Template) String() string { return t.raw }

// Generator pairs a sampler with a template.
type Generator struct {
	sampler  *Sampler
	template Template
}

func NewGenerator(sampler *Sampler, template Template) *Generator {
	return &Generator{sampler: sampler, template: template}
}

// Next samples a fresh identifier and returns the target built from it.
func (g *Generator) Next() Target {
	id := g.sampler.Next()
	return Target{ID: id, URL: g.template.Build(id)}
}
