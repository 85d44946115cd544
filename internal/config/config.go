package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Duration struct {
	Duration time.Duration
}

// UnmarshalYAML accepts "5s" style strings or integer nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if dd, err := time.ParseDuration(s); err == nil {
		d.Duration = dd
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or an int nanoseconds: %q", s)
	}
	d.Duration = time.Duration(n)
	return nil
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `yaml:"max_request_bytes"`
}

type DatabaseConfig struct {
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

type ModelsConfig struct {
	// Dir holds the JSON model artifacts. A missing directory is not an error.
	Dir string `yaml:"dir"`
}

type PredictionConfig struct {
	RecentWindow int `yaml:"recent_window"`
	// OutfieldPlayers fixes the lineup size at one goalkeeper plus this many
	// outfield players. Zero disables the check.
	OutfieldPlayers int `yaml:"outfield_players"`
}

type StatsConfig struct {
	PurgeVanished bool `yaml:"purge_vanished"`
}

// TracingConfig controls OpenTelemetry export. An empty Endpoint exports
// spans to stdout.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Version     string  `yaml:"version"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	Headers     string  `yaml:"headers"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Config struct {
	Env        string           `yaml:"env"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Models     ModelsConfig     `yaml:"models"`
	Prediction PredictionConfig `yaml:"prediction"`
	Stats      StatsConfig      `yaml:"stats"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration{Duration: 30 * time.Minute},
		},
		Models:     ModelsConfig{Dir: "models"},
		Prediction: PredictionConfig{RecentWindow: 5, OutfieldPlayers: 4},
		Stats:      StatsConfig{PurgeVanished: true},
		Tracing:    TracingConfig{ServiceName: "fives-app", SampleRatio: 1},
	}
}

// Load reads the config file named by FIVES_CONFIG_PATH (or
// ./config/config.yaml when present) over the defaults, then applies env
// overrides and validates.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("FIVES_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("FIVES_HTTP_ADDR")); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("FIVES_MODELS_DIR")); v != "" {
		cfg.Models.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("FIVES_PURGE_VANISHED")); v != "" {
		cfg.Stats.PurgeVanished = parseBool(v)
	}

	if v := strings.TrimSpace(os.Getenv("OTEL_ENABLED")); v != "" {
		cfg.Tracing.Enabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); v != "" {
		cfg.Tracing.Insecure = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")); v != "" {
		cfg.Tracing.Headers = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_SAMPLER_RATIO")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracing.SampleRatio = f
		}
	}
}

func (c *Config) Validate() error {
	if c.Env == "" {
		c.Env = "development"
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.MaxRequestBytes <= 0 {
		c.HTTP.MaxRequestBytes = 1 << 20
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required (or set DATABASE_URL)")
	}
	if c.Prediction.RecentWindow <= 0 {
		return fmt.Errorf("prediction.recent_window must be positive, got %d", c.Prediction.RecentWindow)
	}
	if c.Prediction.OutfieldPlayers < 0 {
		return fmt.Errorf("prediction.outfield_players must not be negative, got %d", c.Prediction.OutfieldPlayers)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0,1], got %v", c.Tracing.SampleRatio)
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}
