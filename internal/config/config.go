package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type AnalysisConfig struct {
	// Project names the analyzed codebase in snapshots and the graph store.
	Project string `mapstructure:"project"`

	// SDPThreshold filters reported violations; 0 reports all of them.
	SDPThreshold float64 `mapstructure:"sdp_threshold"`

	// PredictTolerance is how far a numeric prediction may miss and still
	// count as a match.
	PredictTolerance float64 `mapstructure:"predict_tolerance"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type SnapshotsConfig struct {
	Dir string `mapstructure:"dir"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TracingConfig struct {
	// Endpoint is the OTLP gRPC collector address. Empty disables export.
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	AuditLog string `mapstructure:"audit_log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Analysis.SDPThreshold < 0 || c.Analysis.SDPThreshold > 1 {
		warnings = append(warnings, fmt.Sprintf("analysis sdp_threshold %.2f is outside [0.0, 1.0]", c.Analysis.SDPThreshold))
	}
	if c.Analysis.PredictTolerance < 0 {
		warnings = append(warnings, fmt.Sprintf("analysis predict_tolerance %.2f is negative", c.Analysis.PredictTolerance))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}
	if c.Graph.URI != "" && c.Graph.Username == "" {
		warnings = append(warnings, "graph uri is configured but username is empty")
	}

	return warnings
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CALIPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.applyDefaults()

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Analysis.Project == "" {
		c.Analysis.Project = "default"
	}
	if c.Analysis.PredictTolerance == 0 {
		c.Analysis.PredictTolerance = 0.05
	}
	if c.Snapshots.Dir == "" {
		c.Snapshots.Dir = ".caliper/snapshots"
	}
	if c.Temporal.Host == "" {
		c.Temporal.Host = "localhost:7233"
	}
	if c.Temporal.Namespace == "" {
		c.Temporal.Namespace = "default"
	}
	if c.Temporal.TaskQueue == "" {
		c.Temporal.TaskQueue = "caliper-analysis"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
