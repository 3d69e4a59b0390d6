package jwtgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Reserved claim names
const (
	ClaimIssuer    = "iss"
	ClaimAudience  = "aud"
	ClaimSubject   = "sub"
	ClaimIssuedAt  = "iat"
	ClaimNotBefore = "nbf"
	ClaimExpiresAt = "exp"
	ClaimJWTID     = "jti"
)

// claimValue is either a text value or a NumericDate in whole seconds.
type claimValue struct {
	text    string
	seconds int64
	numeric bool
}

func (v claimValue) String() string {
	if v.numeric {
		return strconv.FormatInt(v.seconds, 10)
	}
	return v.text
}

// ClaimSet is the payload of a token: unique claim names mapped to text or
// numeric values. Serialization is ordered lexicographically by name, so two
// sets with the same names and values always encode to the same bytes.
type ClaimSet struct {
	values map[string]claimValue
}

// NewClaimSet returns an empty claim set
func NewClaimSet() *ClaimSet {
	return &ClaimSet{values: make(map[string]claimValue)}
}

// Set stores a text claim, replacing any previous value under the same name.
func (c *ClaimSet) Set(name, value string) {
	c.values[name] = claimValue{text: value}
}

// SetTime stores a NumericDate claim in whole seconds since the epoch.
func (c *ClaimSet) SetTime(name string, seconds int64) {
	c.values[name] = claimValue{seconds: seconds, numeric: true}
}

// Get returns the claim value rendered as text
func (c *ClaimSet) Get(name string) (string, bool) {
	v, ok := c.values[name]
	if !ok {
		return "", false
	}
	return v.String(), true
}

// Has reports whether a claim is present
func (c *ClaimSet) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Len returns the number of claims
func (c *ClaimSet) Len() int {
	return len(c.values)
}

// Names returns claim names in serialization order
func (c *ClaimSet) Names() []string {
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON writes a compact object with keys in lexicographic order.
// Numeric claims are JSON numbers, everything else is a JSON string.
func (c *ClaimSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v := c.values[name]
		if v.numeric {
			buf.WriteString(strconv.FormatInt(v.seconds, 10))
			continue
		}
		text, err := json.Marshal(v.text)
		if err != nil {
			return nil, err
		}
		buf.Write(text)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// The getters below satisfy jwt.Claims so a ClaimSet can be handed to
// golang-jwt directly.

var _ jwt.Claims = (*ClaimSet)(nil)

func (c *ClaimSet) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.numericDate(ClaimExpiresAt)
}

func (c *ClaimSet) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.numericDate(ClaimIssuedAt)
}

func (c *ClaimSet) GetNotBefore() (*jwt.NumericDate, error) {
	return c.numericDate(ClaimNotBefore)
}

func (c *ClaimSet) GetIssuer() (string, error) {
	return c.text(ClaimIssuer)
}

func (c *ClaimSet) GetSubject() (string, error) {
	return c.text(ClaimSubject)
}

func (c *ClaimSet) GetAudience() (jwt.ClaimStrings, error) {
	aud, err := c.text(ClaimAudience)
	if err != nil || aud == "" {
		return nil, err
	}
	return jwt.ClaimStrings{aud}, nil
}

func (c *ClaimSet) numericDate(name string) (*jwt.NumericDate, error) {
	v, ok := c.values[name]
	if !ok {
		return nil, nil
	}
	if !v.numeric {
		return nil, fmt.Errorf("%w: %s is not a numeric date", jwt.ErrInvalidType, name)
	}
	return jwt.NewNumericDate(time.Unix(v.seconds, 0)), nil
}

func (c *ClaimSet) text(name string) (string, error) {
	v, ok := c.values[name]
	if !ok {
		return "", nil
	}
	if v.numeric {
		return "", fmt.Errorf("%w: %s is not a string", jwt.ErrInvalidType, name)
	}
	return v.text, nil
}
