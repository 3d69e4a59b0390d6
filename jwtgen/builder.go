package jwtgen

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const secondsPerHour = 3600

// claimPair is one parsed entry of the additional-claims text
type claimPair struct {
	name  string
	value string
}

// Build assembles the claim set for bundle at now (seconds since the Unix epoch).
// Reserved claims go in first; additional claims are merged afterwards and
// replace reserved values on a name collision. Whitespace around each claim
// name and value is trimmed, so "role= admin" yields role "admin" and a value
// of only spaces is malformed.
func Build(bundle ParameterBundle, now int64) (*ClaimSet, error) {
	return buildClaims(bundle, now, "")
}

// buildClaims is Build with an optional jti inserted among the reserved claims.
func buildClaims(bundle ParameterBundle, now int64, jwtID string) (*ClaimSet, error) {
	if now < 0 {
		return nil, NewIssueError(ErrClock, fmt.Sprintf("clock reports a time before the Unix epoch (%d)", now), nil)
	}
	if bundle.ExpirationHours < 1 {
		return nil, NewIssueError(
			ErrInvalidExpiration,
			fmt.Sprintf("expiration hours must be positive, got %d", bundle.ExpirationHours),
			nil,
		)
	}

	exp, err := expiresAt(now, bundle.ExpirationHours)
	if err != nil {
		return nil, err
	}

	// Parse before inserting anything so a bad pair never yields a partial set
	pairs, err := parseAdditionalClaims(bundle.AdditionalClaims)
	if err != nil {
		return nil, err
	}

	claims := NewClaimSet()
	claims.Set(ClaimIssuer, bundle.Issuer)
	claims.Set(ClaimAudience, bundle.Audience)
	if bundle.Subject != "" {
		claims.Set(ClaimSubject, bundle.Subject)
	}
	claims.SetTime(ClaimIssuedAt, now)
	claims.SetTime(ClaimNotBefore, now)
	claims.SetTime(ClaimExpiresAt, exp)
	if jwtID != "" {
		claims.Set(ClaimJWTID, jwtID)
	}

	for _, p := range pairs {
		claims.Set(p.name, p.value)
	}

	return claims, nil
}

// AdditionalClaimNames returns the claim names in input, in order, after the
// same parsing and validation Build applies.
func AdditionalClaimNames(input string) ([]string, error) {
	pairs, err := parseAdditionalClaims(input)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		names = append(names, p.name)
	}
	return names, nil
}

// expiresAt returns now + hours*3600 with overflow checks.
func expiresAt(now int64, hours int) (int64, error) {
	if int64(hours) > math.MaxInt64/secondsPerHour {
		return 0, NewIssueError(ErrTimeOverflow, fmt.Sprintf("expiration of %d hours overflows", hours), nil)
	}
	lifetime := int64(hours) * secondsPerHour
	if now > math.MaxInt64-lifetime {
		return 0, NewIssueError(
			ErrTimeOverflow,
			fmt.Sprintf("expiration overflows: %d + %d seconds", now, lifetime),
			nil,
		)
	}
	return now + lifetime, nil
}

// parseAdditionalClaims splits "k=v,k=v" into pairs. An empty input is a no-op;
// any pair without '=', with an empty name or value, or that is not valid
// UTF-8 fails.
func parseAdditionalClaims(input string) ([]claimPair, error) {
	if input == "" {
		return nil, nil
	}

	raw := strings.Split(input, ",")
	pairs := make([]claimPair, 0, len(raw))
	for _, pair := range raw {
		name, value, found := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !found || name == "" || value == "" || !utf8.ValidString(pair) {
			return nil, NewIssueError(ErrMalformedClaim, fmt.Sprintf("malformed claim %q, expected key=value", pair), nil)
		}
		pairs = append(pairs, claimPair{name: name, value: value})
	}
	return pairs, nil
}
