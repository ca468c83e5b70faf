package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/libshelf/gate/secret"
	"github.com/libshelf/gate/telemetry"
)

// Config is the daemon configuration. Values may reference environment
// variables with ${VAR}; references are expanded before parsing and a
// missing variable is a startup error.
type Config struct {
	Listen    string          `yaml:"listen"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type StoreConfig struct {
	// Backend selects the shared store: "memory" or "redis".
	Backend string `yaml:"backend"`

	// CleanupEvery is the memory-store janitor interval.
	CleanupEvery Duration `yaml:"cleanupEvery"`

	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	// Filename is the SQLite database path. "memory" keeps the library
	// in memory.
	Filename string `yaml:"filename"`
}

type AuthConfig struct {
	// JWTSecret is the HS256 verification secret. Empty disables the
	// bearer-token guard: every caller is anonymous and mutations are
	// open.
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`

	// Upstream is the identity service that owns login and
	// registration. Requests to /auth/* are forwarded there after rate
	// limiting. Empty means those routes answer 503.
	Upstream string `yaml:"upstream"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`
	SamplePct float64 `yaml:"samplePct"`
}

type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Duration parses YAML strings like "30s" via time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// LoadConfig reads and parses the config file at path. A missing path
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	expanded, err := secret.ExpandEnvStrict(string(raw))
	if err != nil {
		return cfg, fmt.Errorf("expand config: %w", err)
	}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func defaultConfig() Config {
	return Config{
		Listen: ":8080",
		Log:    LogConfig{Level: "info"},
		Store: StoreConfig{
			Backend:      "memory",
			CleanupEvery: Duration(30 * time.Second),
			Redis:        RedisConfig{Addr: "localhost:6379"},
		},
		Database: DatabaseConfig{Filename: "gate.db"},
	}
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "redis" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("redis backend requires store.redis.addr")
	}
	return nil
}

// telemetryConfig maps the file section onto the telemetry package.
func (c Config) telemetryConfig(version string) telemetry.Config {
	return telemetry.Config{
		ServiceName: "gated",
		Version:     version,
		Tracing: telemetry.TracingConfig{
			Enabled:   c.Telemetry.Tracing.Enabled,
			Exporter:  c.Telemetry.Tracing.Exporter,
			SamplePct: c.Telemetry.Tracing.SamplePct,
		},
		Metrics: telemetry.MetricsConfig{
			Enabled:  c.Telemetry.Metrics.Enabled,
			Exporter: c.Telemetry.Metrics.Exporter,
		},
	}
}
