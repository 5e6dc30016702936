package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig
	GitHub  GitHubConfig
	Cache   CacheConfig
	Enrich  EnrichConfig
	Logging LoggingConfig
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `env:"HOST"            envDefault:"0.0.0.0"`
	Port           int           `env:"PORT"            envDefault:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// GitHubConfig represents upstream GitHub API configuration
type GitHubConfig struct {
	Token    string        `env:"GITHUB_TOKEN"`
	BaseURL  string        `env:"GITHUB_BASE_URL"`
	Timeout  time.Duration `env:"GITHUB_TIMEOUT"   envDefault:"10s"`
	PerPage  int           `env:"GITHUB_PER_PAGE"  envDefault:"100"`
	MaxPages int           `env:"GITHUB_MAX_PAGES" envDefault:"10"`
}

// CacheConfig represents in-memory cache configuration
type CacheConfig struct {
	RepoTTL       time.Duration `env:"CACHE_REPO_TTL"       envDefault:"10m"`
	ProfileTTL    time.Duration `env:"CACHE_PROFILE_TTL"    envDefault:"1h"`
	SimilarityTTL time.Duration `env:"CACHE_SIMILARITY_TTL" envDefault:"5m"`
	SweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"5m"`
}

// EnrichConfig bounds the concurrent contributor fan-out
type EnrichConfig struct {
	Workers        int `env:"ENRICH_WORKERS"          envDefault:"5"`
	ContribPerRepo int `env:"ENRICH_CONTRIB_PER_REPO" envDefault:"10"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"` // debug, info, warn, error
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Authenticated reports whether a GitHub token is configured
func (c *Config) Authenticated() bool {
	return strings.TrimSpace(c.GitHub.Token) != ""
}

// RateLimit returns the hourly request budget for the configured auth mode.
// GitHub allows 60 unauthenticated and 5000 authenticated requests per hour.
func (c *Config) RateLimit() int {
	if c.Authenticated() {
		return 5000
	}

	return 60
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			cfg.Logging.Level,
		)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.GitHub.PerPage <= 0 || cfg.GitHub.PerPage > 100 {
		return fmt.Errorf("github per_page must be between 1 and 100: %d", cfg.GitHub.PerPage)
	}

	if cfg.GitHub.MaxPages <= 0 {
		return fmt.Errorf("github max pages must be positive: %d", cfg.GitHub.MaxPages)
	}

	if cfg.Enrich.Workers <= 0 {
		return fmt.Errorf("enrich workers must be positive: %d", cfg.Enrich.Workers)
	}

	if cfg.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache sweep interval must be positive: %s", cfg.Cache.SweepInterval)
	}

	return nil
}
