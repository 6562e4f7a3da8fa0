package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration. Runtime settings that can change
// without a restart live in the settings registry instead.
type Config struct {
	Addr      string          `yaml:"addr"`
	DBPath    string          `yaml:"db_path"`
	LogMode   string          `yaml:"log_mode"`
	AdminKey  string          `yaml:"admin_key"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

type CORSConfig struct {
	AllowedOrigin string `yaml:"allowed_origin"`
}

type RateLimitConfig struct {
	Requests       int           `yaml:"requests"`
	Window         time.Duration `yaml:"window"`
	TrustedProxies []string      `yaml:"trusted_proxies"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:    ":8080",
		DBPath:  "repcoach.db",
		LogMode: "dev",
		CORS:    CORSConfig{AllowedOrigin: "*"},
		RateLimit: RateLimitConfig{
			Requests: 20,
			Window:   time.Minute,
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			SampleRatio: 1.0,
		},
	}
}

// Load reads config from an optional YAML file on top of the defaults, then
// applies environment variable overrides. Env vars use the prefix REPCOACH_:
//
//	REPCOACH_ADDR, REPCOACH_DB_PATH, REPCOACH_LOG_MODE, REPCOACH_ADMIN_KEY,
//	REPCOACH_CORS_ORIGIN, REPCOACH_RATE_LIMIT_REQUESTS, REPCOACH_RATE_LIMIT_WINDOW,
//	REPCOACH_TRUSTED_PROXIES, REPCOACH_TRACING_ENABLED, REPCOACH_TRACING_EXPORTER,
//	REPCOACH_TRACING_ENDPOINT, REPCOACH_TRACING_SAMPLE_RATIO
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("REPCOACH_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("REPCOACH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("REPCOACH_LOG_MODE"); v != "" {
		cfg.LogMode = v
	}
	if v := os.Getenv("REPCOACH_ADMIN_KEY"); v != "" {
		cfg.AdminKey = v
	}
	if v := os.Getenv("REPCOACH_CORS_ORIGIN"); v != "" {
		cfg.CORS.AllowedOrigin = v
	}
	if v := os.Getenv("REPCOACH_RATE_LIMIT_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REPCOACH_RATE_LIMIT_REQUESTS: %w", err)
		}
		cfg.RateLimit.Requests = n
	}
	if v := os.Getenv("REPCOACH_RATE_LIMIT_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REPCOACH_RATE_LIMIT_WINDOW: %w", err)
		}
		cfg.RateLimit.Window = d
	}
	if v := os.Getenv("REPCOACH_TRUSTED_PROXIES"); v != "" {
		cfg.RateLimit.TrustedProxies = splitList(v)
	}
	if v := os.Getenv("REPCOACH_TRACING_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REPCOACH_TRACING_ENABLED: %w", err)
		}
		cfg.Tracing.Enabled = b
	}
	if v := os.Getenv("REPCOACH_TRACING_EXPORTER"); v != "" {
		cfg.Tracing.Exporter = v
	}
	if v := os.Getenv("REPCOACH_TRACING_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("REPCOACH_TRACING_SAMPLE_RATIO"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("REPCOACH_TRACING_SAMPLE_RATIO: %w", err)
		}
		cfg.Tracing.SampleRatio = f
	}
	return nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	switch c.LogMode {
	case "dev", "prod":
	default:
		return fmt.Errorf("log_mode must be dev or prod, got %q", c.LogMode)
	}
	if c.CORS.AllowedOrigin == "" {
		return errors.New("cors.allowed_origin is required")
	}
	if c.RateLimit.Requests < 1 {
		return errors.New("rate_limit.requests must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be positive")
	}
	switch c.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
			return errors.New("tracing.endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("tracing.exporter must be stdout or otlp, got %q", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return errors.New("tracing.sample_ratio must be between 0 and 1")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
