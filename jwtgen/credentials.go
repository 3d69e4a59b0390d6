package jwtgen

import (
	"bytes"
	"context"
	"net/http"

	"google.golang.org/grpc/credentials"
)

const bearerScheme = "Bearer"

// BearerValue formats a token for an Authorization header or metadata entry
func BearerValue(token string) string {
	return bearerScheme + " " + token
}

// SetBearer attaches token to an outgoing HTTP request
func SetBearer(r *http.Request, token string) {
	r.Header.Set("Authorization", BearerValue(token))
}

// TokenCredentials issues a fresh token for every RPC and sends it as
// "authorization: Bearer <token>" metadata.
type TokenCredentials struct {
	issuer        *Issuer
	bundle        ParameterBundle
	allowInsecure bool
}

var _ credentials.PerRPCCredentials = (*TokenCredentials)(nil)

// NewTokenCredentials returns per-RPC credentials minting tokens from bundle.
// The bundle is validated up front so RPCs fail fast on bad input. The
// credentials keep a private copy of the secret for their whole lifetime;
// later changes to bundle.Secret do not affect them.
func NewTokenCredentials(issuer *Issuer, bundle ParameterBundle) (*TokenCredentials, error) {
	if issuer == nil {
		return nil, NewIssueError(ErrConfigError, "issuer cannot be nil", nil)
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	if _, err := parseAdditionalClaims(bundle.AdditionalClaims); err != nil {
		return nil, err
	}
	bundle.Secret = bytes.Clone(bundle.Secret)
	return &TokenCredentials{issuer: issuer, bundle: bundle}, nil
}

// AllowInsecure lets the credentials be used over connections without
// transport security (local development only).
func (c *TokenCredentials) AllowInsecure() *TokenCredentials {
	c.allowInsecure = true
	return c
}

// GetRequestMetadata implements credentials.PerRPCCredentials
func (c *TokenCredentials) GetRequestMetadata(ctx context.Context, _ ...string) (map[string]string, error) {
	token, err := c.issuer.IssueContext(ctx, c.bundle)
	if err != nil {
		return nil, err
	}
	return map[string]string{"authorization": BearerValue(token)}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials
func (c *TokenCredentials) RequireTransportSecurity() bool {
	return !c.allowInsecure
}
