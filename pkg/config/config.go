package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Studyhall service configuration. The model registry
// lives in a separate file (see pkg/registry) so it can be hot-reloaded
// without touching service settings.
type Config struct {
	Listen     string          `yaml:"listen"`
	DBPath     string          `yaml:"db_path"`
	ModelsPath string          `yaml:"models_path"`
	Redis      RedisConfig     `yaml:"redis"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
	Cache      CacheConfig     `yaml:"cache"`
}

// RedisConfig points the rate limiter and response cache at a shared Redis.
// An empty Addr keeps both in process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// RateLimitConfig controls per-student admission.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// CacheConfig controls the response cache. Persistent keeps entries in
// the SQLite database across restarts; it is ignored when Redis is
// configured.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Persistent bool          `yaml:"persistent"`
	TTL        time.Duration `yaml:"ttl"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:     ":8080",
		DBPath:     "studyhall.db",
		ModelsPath: "models.yaml",
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   time.Minute,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Hour,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
