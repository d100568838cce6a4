// Package config assembles runtime settings for the deconfliction binaries.
// Precedence, lowest first: Default, YAML file, environment, command-line
// flags (applied by each binary).
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/uav-deconfliction/core"
	"github.com/signalsfoundry/uav-deconfliction/internal/observability"
)

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds deconfliction and server settings.
type Config struct {
	SafetyBuffer   float64 `yaml:"safety_buffer" json:"safety_buffer"`
	TimeResolution float64 `yaml:"time_resolution" json:"time_resolution"`
	Workers        int     `yaml:"workers" json:"workers"`

	GRPCAddr    string `yaml:"grpc_addr" json:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`

	Tracing Tracing `yaml:"tracing" json:"tracing"`
}

// Tracing mirrors observability.TracingConfig with file tags.
type Tracing struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	Exporter    string  `yaml:"exporter" json:"exporter"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio" json:"sample_ratio"`
}

// Default returns the built-in settings. Workers of 0 means one per CPU.
func Default() Config {
	return Config{
		SafetyBuffer:   core.DefaultSafetyBuffer,
		TimeResolution: core.DefaultTimeResolution,
		GRPCAddr:       ":50051",
		MetricsAddr:    ":9090",
		Tracing: Tracing{
			ServiceName: observability.DefaultServiceName,
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}
}

// LoadFile overlays the YAML document at path onto cfg. A missing file is
// an error; an empty path leaves cfg unchanged.
func LoadFile(cfg Config, path string) (Config, error) {
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv overlays DECONFLICT_* environment variables onto cfg. Unset
// variables leave the corresponding field alone; malformed numbers are
// reported.
func FromEnv(cfg Config) (Config, error) {
	return fromLookup(cfg, os.LookupEnv)
}

func fromLookup(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	var errs []error

	float := func(key string, dst *float64) {
		if raw, ok := lookup(key); ok && raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = v
		}
	}
	str := func(key string, dst *string) {
		if raw, ok := lookup(key); ok && raw != "" {
			*dst = raw
		}
	}

	float("DECONFLICT_SAFETY_BUFFER", &cfg.SafetyBuffer)
	float("DECONFLICT_TIME_RESOLUTION", &cfg.TimeResolution)
	if raw, ok := lookup("DECONFLICT_WORKERS"); ok && raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("DECONFLICT_WORKERS: %w", err))
		} else {
			cfg.Workers = v
		}
	}
	str("DECONFLICT_GRPC_ADDR", &cfg.GRPCAddr)
	str("DECONFLICT_METRICS_ADDR", &cfg.MetricsAddr)

	if raw, ok := lookup("DECONFLICT_TRACING_ENABLED"); ok && raw != "" {
		cfg.Tracing.Enabled = strings.EqualFold(raw, "true")
	}
	if raw, ok := lookup("DECONFLICT_TRACING_EXPORTER"); ok && raw != "" {
		cfg.Tracing.Exporter = strings.ToLower(raw)
	}
	str("DECONFLICT_TRACING_SERVICE_NAME", &cfg.Tracing.ServiceName)
	str("DECONFLICT_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)
	float("DECONFLICT_TRACING_SAMPLE_RATIO", &cfg.Tracing.SampleRatio)

	return cfg, errors.Join(errs...)
}

// Validate reports settings no binary can run with. Degenerate but finite
// safety buffers and resolutions are accepted; the core handles them.
func (c Config) Validate() error {
	var errs []error
	if math.IsNaN(c.SafetyBuffer) || math.IsInf(c.SafetyBuffer, 0) {
		errs = append(errs, fmt.Errorf("%w: safety_buffer must be finite (got %g)", ErrInvalidConfig, c.SafetyBuffer))
	}
	if math.IsNaN(c.TimeResolution) || math.IsInf(c.TimeResolution, 0) {
		errs = append(errs, fmt.Errorf("%w: time_resolution must be finite (got %g)", ErrInvalidConfig, c.TimeResolution))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be >= 0 (got %d)", ErrInvalidConfig, c.Workers))
	}
	if strings.TrimSpace(c.GRPCAddr) == "" {
		errs = append(errs, fmt.Errorf("%w: grpc_addr is required", ErrInvalidConfig))
	}
	if strings.TrimSpace(c.MetricsAddr) == "" {
		errs = append(errs, fmt.Errorf("%w: metrics_addr is required", ErrInvalidConfig))
	}
	if !(c.Tracing.SampleRatio >= 0 && c.Tracing.SampleRatio <= 1) {
		errs = append(errs, fmt.Errorf("%w: tracing.sample_ratio must be in [0, 1] (got %g)", ErrInvalidConfig, c.Tracing.SampleRatio))
	}
	return errors.Join(errs...)
}

// TracingConfig converts the tracing block for observability.InitTracing.
func (c Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

// ServiceOptions returns the core options implied by the config.
func (c Config) ServiceOptions() []core.Option {
	opts := []core.Option{
		core.WithSafetyBuffer(c.SafetyBuffer),
		core.WithTimeResolution(c.TimeResolution),
	}
	if c.Workers > 0 {
		opts = append(opts, core.WithWorkers(c.Workers))
	}
	return opts
}
