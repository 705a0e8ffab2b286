package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for tably-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// External generative model configuration
	AI AIConfig `yaml:"ai"`

	// Generation job limits and lifecycle policy
	Generation GenerationConfig `yaml:"generation"`

	// MigrationsPath is the directory holding SQL migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT signatures are validated.
	// Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"tably"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"tably_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// AIConfig holds configuration for the external generative model.
type AIConfig struct {
	// Provider selects the model client implementation: "openai" or "anthropic".
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	// BaseURL is the API base URL. Empty means the provider default.
	BaseURL string `yaml:"base_url" env:"AI_BASE_URL" env-default:""`
	// Model is the model name, e.g. "gpt-4o" or "claude-sonnet-4-20250514".
	Model string `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o"`
	// APIKey authenticates against the provider. Secret - env only.
	APIKey string `yaml:"-" env:"AI_API_KEY"`
	// Temperature for record generation calls. Intent parsing always runs cooler.
	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.7"`
}

// GenerationConfig holds generation job limits and the stale-job policy.
type GenerationConfig struct {
	// MaxRowCount is the ceiling on records per generation job. Requests above
	// it are clamped to the ceiling before any model call is made.
	MaxRowCount int `yaml:"max_row_count" env:"GENERATION_MAX_ROW_COUNT" env-default:"100"`
	// DefaultRowCount is used when a request implies generation but does not
	// state a count.
	DefaultRowCount int `yaml:"default_row_count" env:"GENERATION_DEFAULT_ROW_COUNT" env-default:"10"`
	// JobTimeoutMinutes bounds a single job's runtime. A running job idle for
	// longer than this is failed by the sweeper so pollers are never stuck on
	// an orphaned job.
	JobTimeoutMinutes int `yaml:"job_timeout_minutes" env:"GENERATION_JOB_TIMEOUT_MINUTES" env-default:"30"`
	// SweepIntervalMinutes is how often the stale-job sweeper runs.
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes" env:"GENERATION_SWEEP_INTERVAL_MINUTES" env-default:"5"`
}

// JobTimeout returns the job timeout as a duration.
func (c *GenerationConfig) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutMinutes) * time.Minute
}

// SweepInterval returns the sweep interval as a duration.
func (c *GenerationConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// Load reads configuration from the given YAML file with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. Secrets (PGPASSWORD, AI_API_KEY) must come from environment
// variables (yaml:"-" fields).
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate rejects configurations that would misbehave at runtime.
func (c *Config) validate() error {
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}

	if c.Generation.MaxRowCount < 1 {
		return fmt.Errorf("generation.max_row_count must be at least 1")
	}
	if c.Generation.DefaultRowCount < 1 || c.Generation.DefaultRowCount > c.Generation.MaxRowCount {
		return fmt.Errorf("generation.default_row_count must be between 1 and max_row_count")
	}
	if c.Generation.JobTimeoutMinutes < 1 {
		return fmt.Errorf("generation.job_timeout_minutes must be at least 1")
	}

	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.Split(pair, "=")
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
