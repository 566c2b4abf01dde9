package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all run flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

func configureFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Load shape
	flags.IntP("vus", "u", DefaultVUs, "Number of concurrent virtual users")
	flags.DurationP("duration", "d", DefaultDuration, "How long to schedule new iterations (e.g. 20s, 1m)")
	flags.IntP("iterations", "i", 0, "Total iterations shared across all VUs (0 means duration-bound)")
	flags.Duration("graceful-stop", DefaultGracefulStop, "How long in-flight iterations may run after the duration elapses")
	flags.Int("rate", 0, "Maximum iterations per second across all VUs (0 means unlimited)")
	flags.Int64("seed", 0, "Random seed for id sampling (0 means time-based)")

	// Request shape
	flags.String("target", DefaultTarget, "Target URL template; {id} is replaced by the sampled id")
	flags.Int("id-min", DefaultIDMin, "Smallest sampled id (inclusive)")
	flags.Int("id-max", DefaultIDMax, "Largest sampled id (inclusive)")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")
	flags.Int("check-status", DefaultCheckStatus, "Expected response status for the default check")
	flags.String("network-errors", string(NetworkErrorsFail), "How network errors count: 'fail' (failed checks) or 'separate' (iteration errors only)")
	flags.StringSlice("threshold", nil, "Pass/fail criteria (repeatable, e.g. 'checks:rate > 0.99')")

	// Output
	flags.Bool("json-output", false, "Emit JSON formatted summary")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.Bool("log-errors", false, "Log each failed iteration to stderr")
	flags.Bool("history", false, "Save the run summary to the local history file")
	flags.String("history-file", "", "Path to the history database (default ~/.vuload/history.db)")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("tracing-service-name", "", "service.name resource attribute (default vuload)")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("tracing-propagate", true, "Inject W3C trace context headers into requests")
}

// applyFlagOverrides copies explicitly set flags over file and environment values.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	intFlag := func(name string, dst *int) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}
	intFlag("vus", &cfg.VUs)
	intFlag("iterations", &cfg.Iterations)
	intFlag("rate", &cfg.Rate)
	intFlag("id-min", &cfg.IDMin)
	intFlag("id-max", &cfg.IDMax)
	if err != nil {
		return err
	}

	if fs.Changed("duration") {
		if cfg.Duration, err = fs.GetDuration("duration"); err != nil {
			return err
		}
	}
	if fs.Changed("graceful-stop") {
		if cfg.GracefulStop, err = fs.GetDuration("graceful-stop"); err != nil {
			return err
		}
	}
	if fs.Changed("timeout") {
		if cfg.Timeout, err = fs.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if fs.Changed("seed") {
		if cfg.Seed, err = fs.GetInt64("seed"); err != nil {
			return err
		}
	}
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.Target = strings.TrimSpace(val)
	}
	if fs.Changed("check-status") {
		status, err := fs.GetInt("check-status")
		if err != nil {
			return err
		}
		cfg.Checks = []CheckConfig{{Name: fmt.Sprintf("status is %d", status), Status: status}}
	}
	if fs.Changed("network-errors") {
		val, err := fs.GetString("network-errors")
		if err != nil {
			return err
		}
		cfg.NetworkErrors = NetworkErrorPolicy(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("threshold") {
		if cfg.Thresholds, err = fs.GetStringSlice("threshold"); err != nil {
			return err
		}
	}

	boolFlags := []struct {
		name string
		dst  *bool
	}{
		{"json-output", &cfg.JSONOutput},
		{"dashboard", &cfg.Dashboard},
		{"log-errors", &cfg.LogErrors},
		{"history", &cfg.History.Enabled},
		{"tracing-insecure", &cfg.Tracing.Insecure},
	}
	for _, f := range boolFlags {
		if !fs.Changed(f.name) {
			continue
		}
		if *f.dst, err = fs.GetBool(f.name); err != nil {
			return err
		}
	}

	if fs.Changed("history-file") {
		val, err := fs.GetString("history-file")
		if err != nil {
			return err
		}
		cfg.History.Path = strings.TrimSpace(val)
		cfg.History.Enabled = true
	}
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-service-name") {
		if cfg.Tracing.ServiceName, err = fs.GetString("tracing-service-name"); err != nil {
			return err
		}
	}
	if fs.Changed("tracing-sample-rate") {
		if cfg.Tracing.SampleRate, err = fs.GetFloat64("tracing-sample-rate"); err != nil {
			return err
		}
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}

	return nil
}
