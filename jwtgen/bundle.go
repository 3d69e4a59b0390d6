package jwtgen

import (
	"fmt"
	"log/slog"
)

const (
	// DefaultExpirationHours is used when the caller does not choose a lifetime.
	DefaultExpirationHours = 1
	// MaxExpirationHours bounds the lifetime a caller may request.
	MaxExpirationHours = 255
)

// ParameterBundle is the validated input handed to the issuer by a front end
// (CLI flags, HTTP request plus server config).
type ParameterBundle struct {
	Issuer           string
	Audience         string
	Subject          string // optional; sub is omitted when empty
	Secret           []byte // HMAC key, never rendered
	ExpirationHours  int
	AdditionalClaims string // "key=value,key=value"
}

// Validate checks the structural shape front ends are responsible for.
// Claim pair syntax is checked later by Build.
func (b ParameterBundle) Validate() error {
	if b.Issuer == "" {
		return NewIssueError(ErrInvalidBundle, "issuer is required", nil)
	}
	if b.Audience == "" {
		return NewIssueError(ErrInvalidBundle, "audience is required", nil)
	}
	if len(b.Secret) == 0 {
		return NewIssueError(ErrInvalidBundle, "secret is required", nil)
	}
	if b.ExpirationHours < 1 || b.ExpirationHours > MaxExpirationHours {
		return NewIssueError(
			ErrInvalidBundle,
			fmt.Sprintf("expiration hours must be between 1 and %d, got %d", MaxExpirationHours, b.ExpirationHours),
			nil,
		)
	}
	return nil
}

// String renders the bundle without the secret
func (b ParameterBundle) String() string {
	return fmt.Sprintf("ParameterBundle{iss=%q aud=%q sub=%q exp_hours=%d claims=%q secret=%s}",
		b.Issuer, b.Audience, b.Subject, b.ExpirationHours, b.AdditionalClaims, redactSecret(b.Secret))
}

// GoString keeps %#v from dumping the secret bytes
func (b ParameterBundle) GoString() string {
	return b.String()
}

// LogValue implements slog.LogValuer; the secret is reduced to a presence marker.
func (b ParameterBundle) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("issuer", b.Issuer),
		slog.String("audience", b.Audience),
		slog.String("subject", b.Subject),
		slog.Int("expiration_hours", b.ExpirationHours),
		slog.String("additional_claims", b.AdditionalClaims),
		slog.String("secret", redactSecret(b.Secret)),
	)
}

func redactSecret(secret []byte) string {
	if len(secret) == 0 {
		return ""
	}
	return "[REDACTED]"
}
