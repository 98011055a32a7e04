// Package config loads server settings from defaults, an optional YAML file
// and SYNAPSE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig selects the host framework and how it listens
type ServerConfig struct {
	Adapter         string        `yaml:"adapter" validate:"oneof=echo gin fiber chi http"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	Prefix          string        `yaml:"prefix"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path" validate:"omitempty,startswith=/"`
	Namespace string `yaml:"namespace"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name" validate:"required_if=Enabled true"`
	Exporter    string `yaml:"exporter" validate:"oneof=none stdout"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Adapter:         "echo",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Metrics: MetricsConfig{
			Path:      "/metrics",
			Namespace: "synapse",
		},
		Tracing: TracingConfig{ServiceName: "synapse", Exporter: "stdout"},
	}
}

// Loader builds a Config. Lookup defaults to os.LookupEnv.
type Loader struct {
	Lookup func(key string) (string, bool)
}

// Load is shorthand for a Loader reading the process environment
func Load(path string) (*Config, error) {
	return (&Loader{}).Load(path)
}

// Load is Read followed by Validate
func (l *Loader) Load(path string) (*Config, error) {
	cfg, err := l.Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read applies defaults, then the YAML file at path when it exists, then
// environment overrides. An empty path skips the file. The result is not
// validated so callers can layer flags on top first.
func (l *Loader) Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("SYNAPSE_ADAPTER", &cfg.Server.Adapter)
	str("SYNAPSE_PREFIX", &cfg.Server.Prefix)
	str("SYNAPSE_LOG_LEVEL", &cfg.Log.Level)
	str("SYNAPSE_METRICS_PATH", &cfg.Metrics.Path)
	str("SYNAPSE_METRICS_NAMESPACE", &cfg.Metrics.Namespace)
	str("SYNAPSE_TRACING_SERVICE_NAME", &cfg.Tracing.ServiceName)
	str("SYNAPSE_TRACING_EXPORTER", &cfg.Tracing.Exporter)

	if v, ok := lookup("SYNAPSE_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SYNAPSE_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("SYNAPSE_SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SYNAPSE_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	if v, ok := lookup("SYNAPSE_CORS_ORIGINS"); ok {
		cfg.Server.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, origin)
			}
		}
	}

	for key, dst := range map[string]*bool{
		"SYNAPSE_LOG_DEVELOPMENT": &cfg.Log.Development,
		"SYNAPSE_METRICS_ENABLED": &cfg.Metrics.Enabled,
		"SYNAPSE_TRACING_ENABLED": &cfg.Tracing.Enabled,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr is the listen address for the configured port
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Logger builds the zap logger described by the log section
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if c.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
