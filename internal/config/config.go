package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Environment string `toml:"-"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// request pipeline
	CorsOrigin                string `toml:"cors_origin"`
	RateLimitMaxRequests      int    `toml:"rate_limit_max_requests"`
	RateLimitWindowMinutes    int    `toml:"rate_limit_window_minutes"`
	LoginRateLimitMaxRequests int    `toml:"login_rate_limit_max_requests"`

	// static assets
	StaticRootPath  string `toml:"static_root_path"`
	UploadsRootPath string `toml:"uploads_root_path"`

	// redis: when host is empty, in-memory backends are used for the
	// rate limiter and the session revocation set
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// prometheus
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// envOverrides is the environment contract of the dashboard deployment,
// applied on top of whatever the TOML file says.
type envOverrides struct {
	Port       int    `envconfig:"PORT"`
	NodeEnv    string `envconfig:"NODE_ENV"`
	CorsOrigin string `envconfig:"CORS_ORIGIN"`
}

func defaultConfig() *Config {
	return &Config{
		Host:                      "0.0.0.0",
		Port:                      5000,
		LogLevel:                  "trace",
		LogToStdout:               true,
		RateLimitMaxRequests:      100,
		RateLimitWindowMinutes:    15,
		LoginRateLimitMaxRequests: 10,
		StaticRootPath:            "./static",
		UploadsRootPath:           "./uploads",
		PrometheusMetricsHost:     "localhost",
		PrometheusMetricsPort:     "2112",
	}
}

// Load reads the TOML config for the given environment and applies the
// PORT / NODE_ENV / CORS_ORIGIN overrides. A missing config file is fine,
// defaults are used then.
func Load(env, path string) (*Config, error) {
	var overrides envOverrides
	if err := envconfig.Process("", &overrides); err != nil {
		return nil, fmt.Errorf("process env overrides: %w", err)
	}

	if overrides.NodeEnv != "" {
		env = overrides.NodeEnv
	}

	cfg := defaultConfig()
	if _, err := os.Stat(path); err == nil {
		var tomlCfg Toml
		if _, err := toml.DecodeFile(path, &tomlCfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
		cfg, err = tomlCfg.Get(env)
		if err != nil {
			return nil, err
		}
		if cfg == nil {
			return nil, fmt.Errorf("config file %s has no section for env %s", path, env)
		}
	}

	cfg.Environment = canonicalEnv(env)

	if overrides.Port != 0 {
		cfg.Port = overrides.Port
	}
	if overrides.CorsOrigin != "" {
		cfg.CorsOrigin = overrides.CorsOrigin
	}
	if cfg.RateLimitMaxRequests == 0 {
		cfg.RateLimitMaxRequests = 100
	}
	if cfg.RateLimitWindowMinutes == 0 {
		cfg.RateLimitWindowMinutes = 15
	}
	if cfg.LoginRateLimitMaxRequests == 0 {
		cfg.LoginRateLimitMaxRequests = 10
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func canonicalEnv(env string) string {
	switch strings.ToLower(env) {
	case "prod", "production":
		return "production"
	default:
		return "development"
	}
}
