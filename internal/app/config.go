package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the serialisable configuration of an application run. The
// zero value of a nested section inherits DefaultConfig's values when
// loaded through LoadConfig.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Engine EngineConfig `yaml:"engine"`
	Trace  TraceConfig  `yaml:"trace"`
	Model  ModelConfig  `yaml:"model"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type EngineConfig struct {
	PoolSize    int  `yaml:"poolSize"`
	Synchronous bool `yaml:"synchronous"`
}

type TraceConfig struct {
	Exporter string `yaml:"exporter"` // none, stdout, yaml or otel
	File     string `yaml:"file"`     // empty writes to the application output
	Service  string `yaml:"service"`
}

// ModelConfig parameterizes the demo model.
type ModelConfig struct {
	Setpoint     float64       `yaml:"setpoint"`
	Ambient      float64       `yaml:"ambient"`
	HeatRate     float64       `yaml:"heatRate"`
	SamplePeriod time.Duration `yaml:"samplePeriod"`
	Duration     time.Duration `yaml:"duration"`
	Temperatures []float64     `yaml:"temperatures"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Engine: EngineConfig{PoolSize: 4},
		Trace:  TraceConfig{Exporter: "none", Service: "blockx"},
		Model: ModelConfig{
			Setpoint:     21,
			Ambient:      15,
			HeatRate:     0.5,
			SamplePeriod: 50 * time.Millisecond,
			Duration:     time.Second,
			Temperatures: []float64{50, 150, -10},
		},
	}
}

// Validate returns the aggregated configuration errors or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	if c.Engine.PoolSize <= 0 {
		errs = append(errs, errors.New("engine.poolSize must be > 0"))
	}
	switch c.Trace.Exporter {
	case "none", "stdout", "yaml", "otel":
	default:
		errs = append(errs, fmt.Errorf("trace.exporter %q: want none, stdout, yaml or otel", c.Trace.Exporter))
	}
	if c.Model.SamplePeriod <= 0 {
		errs = append(errs, errors.New("model.samplePeriod must be > 0"))
	}
	if c.Model.Duration < 0 {
		errs = append(errs, errors.New("model.duration must not be negative"))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
// Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
