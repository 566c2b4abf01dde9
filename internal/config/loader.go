package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. VULOAD_VUS=10.
const EnvPrefix = "VULOAD"

// envKeys lists the scalar settings that may come from the environment.
var envKeys = []string{
	"vus", "duration", "iterations", "target", "id_min", "id_max",
	"timeout", "graceful_stop", "rate", "seed", "network_errors",
	"json_output", "dashboard", "log_errors",
	"tracing.endpoint", "tracing.protocol", "tracing.service_name",
	"tracing.sample_rate", "tracing.insecure",
	"history.enabled", "history.path",
}

// Loader builds a Config from defaults, a config file, the environment and flags,
// in increasing order of precedence.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// Load resolves the configuration for an already parsed flag set.
// The flag set must carry the flags registered by RegisterFlags.
func (l *Loader) Load(fs *pflag.FlagSet) (*Config, error) {
	configPath := ""
	if f := fs.Lookup("config"); f != nil {
		configPath = strings.TrimSpace(f.Value.String())
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := Default()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(&cfg, v.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(&cfg, fs); err != nil {
		return nil, err
	}

	cfg.Target = strings.TrimSpace(cfg.Target)
	if cfg.NetworkErrors == "" {
		cfg.NetworkErrors = NetworkErrorsFail
	}
	if len(cfg.Checks) == 0 {
		cfg.Checks = []CheckConfig{DefaultCheck()}
	}
	return &cfg, nil
}

func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	ints := []struct {
		keys []string
		dst  *int
	}{
		{[]string{"vus"}, &cfg.VUs},
		{[]string{"iterations"}, &cfg.Iterations},
		{[]string{"rate"}, &cfg.Rate},
		{[]string{"id_min", "idmin", "id-min"}, &cfg.IDMin},
		{[]string{"id_max", "idmax", "id-max"}, &cfg.IDMax},
	}
	for _, s := range ints {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asInt(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = val
		}
	}

	durations := []struct {
		keys []string
		dst  *time.Duration
	}{
		{[]string{"duration"}, &cfg.Duration},
		{[]string{"timeout"}, &cfg.Timeout},
		{[]string{"graceful_stop", "gracefulstop", "graceful-stop"}, &cfg.GracefulStop},
	}
	for _, s := range durations {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			dur, err := asDuration(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = dur
		}
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt64(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = val
	}

	if raw, ok := lookupSetting(settings, "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			cfg.Target = strings.TrimSpace(val)
		}
	}

	if raw, ok := lookupSetting(settings, "network_errors", "networkerrors", "network-errors"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("network_errors: %w", err)
		}
		cfg.NetworkErrors = NetworkErrorPolicy(strings.ToLower(strings.TrimSpace(val)))
	}

	bools := []struct {
		keys []string
		dst  *bool
	}{
		{[]string{"json_output", "jsonoutput", "json-output"}, &cfg.JSONOutput},
		{[]string{"dashboard"}, &cfg.Dashboard},
		{[]string{"log_errors", "logerrors", "log-errors"}, &cfg.LogErrors},
	}
	for _, s := range bools {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = val
	}

	if raw, ok := lookupSetting(settings, "checks"); ok {
		checks, err := parseChecks(raw)
		if err != nil {
			return fmt.Errorf("checks: %w", err)
		}
		cfg.Checks = checks
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "history"); ok {
		if err := applyHistorySettings(&cfg.History, raw); err != nil {
			return fmt.Errorf("history: %w", err)
		}
	}

	return nil
}

func parseChecks(value interface{}) ([]CheckConfig, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	checks := make([]CheckConfig, 0, len(items))
	for idx, item := range items {
		settings, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("checks[%d]: %w", idx, err)
		}
		var c CheckConfig
		if raw, ok := lookupSetting(settings, "name"); ok {
			if c.Name, err = asString(raw); err != nil {
				return nil, fmt.Errorf("checks[%d].name: %w", idx, err)
			}
		}
		if raw, ok := lookupSetting(settings, "status"); ok {
			if c.Status, err = asInt(raw); err != nil {
				return nil, fmt.Errorf("checks[%d].status: %w", idx, err)
			}
		}
		if raw, ok := lookupSetting(settings, "body_path", "bodypath", "body-path"); ok {
			if c.BodyPath, err = asString(raw); err != nil {
				return nil, fmt.Errorf("checks[%d].body_path: %w", idx, err)
			}
		}
		c.Name = strings.TrimSpace(c.Name)
		checks = append(checks, c)
	}
	return checks, nil
}

func applyTracingSettings(t *TracingConfig, value interface{}) error {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		if t.Endpoint, err = asString(raw); err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		t.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "service_name", "servicename", "service-name"); ok {
		if t.ServiceName, err = asString(raw); err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "samplerate", "sample-rate"); ok {
		if t.SampleRate, err = asFloat64(raw); err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		if t.Insecure, err = asBool(raw); err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		t.Propagate = &val
	}
	return nil
}

func applyHistorySettings(h *HistoryConfig, value interface{}) error {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "enabled"); ok {
		if h.Enabled, err = asBool(raw); err != nil {
			return fmt.Errorf("enabled: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "path"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("path: %w", err)
		}
		h.Path = strings.TrimSpace(val)
		if h.Path != "" {
			h.Enabled = true
		}
	}
	return nil
}
