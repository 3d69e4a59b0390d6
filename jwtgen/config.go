package jwtgen

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Config holds immutable issuer settings. It carries no key material; the
// secret travels with each ParameterBundle.
type Config struct {
	clock     func() time.Time
	logger    *slog.Logger
	jwtIDFunc func() string
	signer    *Signer
}

// ConfigOption is a functional option for configuring the issuer
type ConfigOption func(*Config) error

// NewConfig creates a new immutable configuration with the given options
func NewConfig(opts ...ConfigOption) (*Config, error) {
	cfg := &Config{
		clock:  time.Now,
		signer: NewSigner(),
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, NewIssueError(ErrConfigError, fmt.Sprintf("configuration error: %v", err), err)
		}
	}

	return cfg, nil
}

// WithClock replaces the wall clock. The clock is read exactly once per token.
func WithClock(clock func() time.Time) ConfigOption {
	return func(c *Config) error {
		if clock == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.clock = clock
		return nil
	}
}

// WithFixedTime pins the clock to t, which makes issuance reproducible
func WithFixedTime(t time.Time) ConfigOption {
	return WithClock(func() time.Time { return t })
}

// WithLogger sets a structured logger for issuance events
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// WithJWTID adds a jti claim produced by gen to every token
func WithJWTID(gen func() string) ConfigOption {
	return func(c *Config) error {
		if gen == nil {
			return fmt.Errorf("jti generator cannot be nil")
		}
		c.jwtIDFunc = gen
		return nil
	}
}

// WithRandomJWTID adds a random UUIDv4 jti claim to every token
func WithRandomJWTID() ConfigOption {
	return WithJWTID(uuid.NewString)
}

// WithSigner overrides the HS256 signer
func WithSigner(signer *Signer) ConfigOption {
	return func(c *Config) error {
		if signer == nil || signer.method == nil {
			return fmt.Errorf("signer cannot be nil")
		}
		c.signer = signer
		return nil
	}
}

func (c *Config) Logger() *slog.Logger {
	return c.logger
}

func (c *Config) Algorithm() string {
	return c.signer.Algorithm()
}
