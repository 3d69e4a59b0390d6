package main

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Wang-tianhao/Vibrant-tokengen-go/jwtgen"
)

// Config is the top-level token server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Token     TokenConfig     `yaml:"token"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TokenConfig holds the server-side claim values and the signing secret.
// Exactly one of Secret and SecretFile must be set.
type TokenConfig struct {
	Issuer                 string `yaml:"issuer"`
	Audience               string `yaml:"audience"`
	Secret                 string `yaml:"secret"`
	SecretFile             string `yaml:"secret_file"`
	DefaultExpirationHours int    `yaml:"default_expiration_hours"`
	MaxExpirationHours     int    `yaml:"max_expiration_hours"`
	JWTID                  bool   `yaml:"jti"`
}

// RateLimitConfig holds the global token bucket settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// MetricsConfig toggles the Prometheus endpoint. Enabled defaults to true.
type MetricsConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled returns whether metrics are enabled (defaults to true).
func (m MetricsConfig) IsEnabled() bool {
	if m.Enabled == nil {
		return true
	}
	return *m.Enabled
}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the environment value. Unset
// variables are left as written.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return match
	})
}

// LoadConfig reads a YAML file, expands environment variables, applies
// defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses configuration from raw YAML bytes.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Token.DefaultExpirationHours == 0 {
		cfg.Token.DefaultExpirationHours = jwtgen.DefaultExpirationHours
	}
	if cfg.Token.MaxExpirationHours == 0 {
		cfg.Token.MaxExpirationHours = 24
	}

	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 100
	}
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 50
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	tok := cfg.Token
	if tok.Issuer == "" {
		return fmt.Errorf("token.issuer is required")
	}
	if tok.Audience == "" {
		return fmt.Errorf("token.audience is required")
	}
	if tok.Secret == "" && tok.SecretFile == "" {
		return fmt.Errorf("one of token.secret or token.secret_file is required")
	}
	if tok.Secret != "" && tok.SecretFile != "" {
		return fmt.Errorf("token.secret and token.secret_file are mutually exclusive")
	}
	if tok.MaxExpirationHours < 1 || tok.MaxExpirationHours > jwtgen.MaxExpirationHours {
		return fmt.Errorf("token.max_expiration_hours must be between 1 and %d, got %d",
			jwtgen.MaxExpirationHours, tok.MaxExpirationHours)
	}
	if tok.DefaultExpirationHours < 1 || tok.DefaultExpirationHours > tok.MaxExpirationHours {
		return fmt.Errorf("token.default_expiration_hours must be between 1 and %d, got %d",
			tok.MaxExpirationHours, tok.DefaultExpirationHours)
	}

	if cfg.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}
	if cfg.RateLimit.BurstSize <= 0 {
		return fmt.Errorf("rate_limit.burst_size must be positive")
	}

	return nil
}

// LoadSecret returns the signing secret from the inline value or the file.
func (t TokenConfig) LoadSecret() ([]byte, error) {
	if t.SecretFile != "" {
		return jwtgen.ReadSecretFile(t.SecretFile)
	}
	return []byte(t.Secret), nil
}
