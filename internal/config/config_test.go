package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/torosent/vuload/internal/config"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	cmd := &cobra.Command{Use: "vuload"}
	config.RegisterFlags(cmd)
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cmd.Flags()
}

func TestLoadDefaultsMatchReferenceRun(t *testing.T) {
	cfg, err := config.NewLoader().Load(parseFlags(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.VUs != 50 {
		t.Errorf("VUs = %d, want 50", cfg.VUs)
	}
	if cfg.Duration != 20*time.Second {
		t.Errorf("Duration = %s, want 20s", cfg.Duration)
	}
	if cfg.Target != "http://localhost:8000/events/{id}" {
		t.Errorf("Target = %q", cfg.Target)
	}
	if cfg.IDMin != 1 || cfg.IDMax != 5000 {
		t.Errorf("id range = [%d, %d], want [1, 5000]", cfg.IDMin, cfg.IDMax)
	}
	if len(cfg.Checks) != 1 || cfg.Checks[0].Name != "status is 200" || cfg.Checks[0].Status != 200 {
		t.Errorf("Checks = %+v", cfg.Checks)
	}
	if cfg.NetworkErrors != config.NetworkErrorsFail {
		t.Errorf("NetworkErrors = %q, want fail", cfg.NetworkErrors)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	content := `
vus: 10
duration: 45s
target: http://localhost:9000/events/{id}
id_min: 10
id_max: 20
checks:
  - name: status is 200
    status: 200
  - name: has count
    body_path: count
thresholds:
  - "checks:rate > 0.99"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.NewLoader().Load(parseFlags(t, "--config", path, "--vus", "3"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.VUs != 3 {
		t.Errorf("VUs = %d, want flag override 3", cfg.VUs)
	}
	if cfg.Duration != 45*time.Second {
		t.Errorf("Duration = %s, want 45s", cfg.Duration)
	}
	if cfg.IDMin != 10 || cfg.IDMax != 20 {
		t.Errorf("id range = [%d, %d]", cfg.IDMin, cfg.IDMax)
	}
	if len(cfg.Checks) != 2 {
		t.Errorf("Checks = %+v, want 2", cfg.Checks)
	}
	if len(cfg.Thresholds) != 1 || cfg.Thresholds[0] != "checks:rate > 0.99" {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	if err := os.WriteFile(path, []byte(`{"vus": 2, "iterations": 10, "network_errors": "separate"}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.NewLoader().Load(parseFlags(t, "--config="+path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VUs != 2 || cfg.Iterations != 10 {
		t.Errorf("VUs/Iterations = %d/%d, want 2/10", cfg.VUs, cfg.Iterations)
	}
	if cfg.NetworkErrors != config.NetworkErrorsSeparate {
		t.Errorf("NetworkErrors = %q", cfg.NetworkErrors)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := config.NewLoader().Load(parseFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("VULOAD_VUS", "12")
	t.Setenv("VULOAD_DURATION", "2s")
	t.Setenv("VULOAD_TRACING_ENDPOINT", "collector:4317")

	cfg, err := config.NewLoader().Load(parseFlags(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VUs != 12 {
		t.Errorf("VUs = %d, want 12", cfg.VUs)
	}
	if cfg.Duration != 2*time.Second {
		t.Errorf("Duration = %s, want 2s", cfg.Duration)
	}
	if cfg.Tracing.Endpoint != "collector:4317" {
		t.Errorf("Tracing.Endpoint = %q", cfg.Tracing.Endpoint)
	}

	cfg, err = config.NewLoader().Load(parseFlags(t, "--vus=4"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VUs != 4 {
		t.Errorf("VUs = %d, want flag to beat env", cfg.VUs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"defaults", func(*config.Config) {}, ""},
		{"zero vus", func(c *config.Config) { c.VUs = 0 }, "vus must be >= 1"},
		{"no bound", func(c *config.Config) { c.Duration = 0 }, "either duration or iterations"},
		{"iterations only", func(c *config.Config) { c.Duration = 0; c.Iterations = 1 }, ""},
		{"missing placeholder", func(c *config.Config) { c.Target = "http://localhost:8000/events/1" }, "{id} placeholder"},
		{"bad scheme", func(c *config.Config) { c.Target = "ftp://host/{id}" }, "scheme must be http or https"},
		{"empty target", func(c *config.Config) { c.Target = "  " }, "target template is empty"},
		{"no host", func(c *config.Config) { c.Target = "http:///events/{id}" }, "has no host"},
		{"high vus", func(c *config.Config) { c.VUs = 5000 }, ""},
		{"inverted range", func(c *config.Config) { c.IDMin, c.IDMax = 10, 5 }, "id_max must be >= id_min"},
		{"zero min", func(c *config.Config) { c.IDMin = 0 }, "id_min must be >= 1"},
		{"unknown policy", func(c *config.Config) { c.NetworkErrors = "ignore" }, "network_errors"},
		{"empty check", func(c *config.Config) { c.Checks = []config.CheckConfig{{Name: "x"}} }, "status or body_path is required"},
		{"duplicate check", func(c *config.Config) {
			c.Checks = []config.CheckConfig{{Name: "a", Status: 200}, {Name: "a", Status: 201}}
		}, "duplicate name"},
		{"dashboard with json", func(c *config.Config) { c.Dashboard, c.JSONOutput = true, true }, "mutually exclusive"},
		{"bad sample rate", func(c *config.Config) { c.Tracing.SampleRate = 2 }, "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			var verr config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWarnings(t *testing.T) {
	cfg := config.Default()
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("Warnings() on defaults = %v, want none", w)
	}

	cfg.VUs = 1001
	w := cfg.Warnings()
	if len(w) != 1 || !strings.Contains(w[0], "high VU count configured (1001)") {
		t.Errorf("Warnings() = %v, want the high VU warning", w)
	}
}
