package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/torosent/vuload/internal/target"
)

const (
	DefaultVUs          = 50
	DefaultDuration     = 20 * time.Second
	DefaultTarget       = "http://localhost:8000/events/{id}"
	DefaultIDMin        = 1
	DefaultIDMax        = 5000
	DefaultTimeout      = 60 * time.Second
	DefaultGracefulStop = 30 * time.Second
	DefaultCheckName    = "status is 200"
	DefaultCheckStatus  = 200

	// IDPlaceholder marks where the sampled identifier goes in the target template.
	IDPlaceholder = target.Placeholder

	highVUs = 1000
)

// NetworkErrorPolicy decides how transport failures are accounted.
type NetworkErrorPolicy string

const (
	// NetworkErrorsFail fails every check of the iteration and counts an iteration error.
	NetworkErrorsFail NetworkErrorPolicy = "fail"
	// NetworkErrorsSeparate skips check evaluation and counts only the iteration error.
	NetworkErrorsSeparate NetworkErrorPolicy = "separate"
)

type Config struct {
	VUs           int                `mapstructure:"vus"`
	Duration      time.Duration      `mapstructure:"duration"`
	Iterations    int                `mapstructure:"iterations"`
	Target        string             `mapstructure:"target"`
	IDMin         int                `mapstructure:"id_min"`
	IDMax         int                `mapstructure:"id_max"`
	Timeout       time.Duration      `mapstructure:"timeout"`
	GracefulStop  time.Duration      `mapstructure:"graceful_stop"`
	Rate          int                `mapstructure:"rate"`
	Seed          int64              `mapstructure:"seed"`
	Checks        []CheckConfig      `mapstructure:"checks"`
	NetworkErrors NetworkErrorPolicy `mapstructure:"network_errors"`
	Thresholds    []string           `mapstructure:"thresholds"`
	JSONOutput    bool               `mapstructure:"json_output"`
	Dashboard     bool               `mapstructure:"dashboard"`
	LogErrors     bool               `mapstructure:"log_errors"`
	Tracing       TracingConfig      `mapstructure:"tracing"`
	History       HistoryConfig      `mapstructure:"history"`
	ConfigFile    string             `mapstructure:"-"`
}

// CheckConfig describes one named assertion evaluated on every response.
type CheckConfig struct {
	Name     string `mapstructure:"name" json:"name" yaml:"name"`
	Status   int    `mapstructure:"status" json:"status,omitempty" yaml:"status,omitempty"`
	BodyPath string `mapstructure:"body_path" json:"body_path,omitempty" yaml:"body_path,omitempty"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether any tracing setting was supplied.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate defaults to true once tracing is enabled.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Default returns the reference run: 50 VUs for 20s against the local events endpoint.
func Default() Config {
	return Config{
		VUs:           DefaultVUs,
		Duration:      DefaultDuration,
		Target:        DefaultTarget,
		IDMin:         DefaultIDMin,
		IDMax:         DefaultIDMax,
		Timeout:       DefaultTimeout,
		GracefulStop:  DefaultGracefulStop,
		Checks:        []CheckConfig{DefaultCheck()},
		NetworkErrors: NetworkErrorsFail,
		Tracing:       TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

func DefaultCheck() CheckConfig {
	return CheckConfig{Name: DefaultCheckName, Status: DefaultCheckStatus}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Warnings lists settings that are valid but worth confirming before a run.
func (c Config) Warnings() []string {
	var warnings []string
	if c.VUs > highVUs {
		warnings = append(warnings, fmt.Sprintf("high VU count configured (%d); ensure you have authorization to test the target system", c.VUs))
	}
	return warnings
}

func (c Config) Validate() error {
	var issues []string

	if c.VUs < 1 {
		issues = append(issues, "vus must be >= 1")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Iterations < 0 {
		issues = append(issues, "iterations must be >= 0")
	}
	if c.Duration == 0 && c.Iterations == 0 {
		issues = append(issues, "either duration or iterations must be > 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.GracefulStop < 0 {
		issues = append(issues, "graceful_stop must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.IDMin < 1 {
		issues = append(issues, "id_min must be >= 1")
	}
	if c.IDMax < c.IDMin {
		issues = append(issues, "id_max must be >= id_min")
	}

	issues = append(issues, validateTarget(c.Target)...)
	issues = append(issues, validateChecks(c.Checks)...)

	switch c.NetworkErrors {
	case "", NetworkErrorsFail, NetworkErrorsSeparate:
	default:
		issues = append(issues, fmt.Sprintf("network_errors: must be 'fail' or 'separate', got %q", c.NetworkErrors))
	}

	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing: sample_rate must be between 0.0 and 1.0")
	}
	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTarget(raw string) []string {
	if _, err := target.ParseTemplate(raw); err != nil {
		return []string{err.Error()}
	}
	return nil
}

func validateChecks(checks []CheckConfig) []string {
	var issues []string
	seen := map[string]int{}
	for idx, c := range checks {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			issues = append(issues, fmt.Sprintf("checks[%d]: name is required", idx))
		} else if prev, ok := seen[name]; ok {
			issues = append(issues, fmt.Sprintf("checks[%d]: duplicate name also defined at index %d", idx, prev))
		} else {
			seen[name] = idx
		}
		if c.Status == 0 && strings.TrimSpace(c.BodyPath) == "" {
			issues = append(issues, fmt.Sprintf("checks[%d]: status or body_path is required", idx))
		}
		if c.Status != 0 && (c.Status < 100 || c.Status > 599) {
			issues = append(issues, fmt.Sprintf("checks[%d]: status %d is not a valid HTTP status", idx, c.Status))
		}
	}
	return issues
}
