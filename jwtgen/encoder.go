package jwtgen

import (
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const headerType = "JWT"

// Header is the fixed JOSE header of every issued token: HS256, type JWT.
type Header struct{}

// Algorithm returns the signing algorithm identifier
func (Header) Algorithm() string {
	return jwt.SigningMethodHS256.Alg()
}

// Type returns the token type identifier
func (Header) Type() string {
	return headerType
}

// MarshalJSON renders {"alg":"HS256","typ":"JWT"}
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Alg string `json:"alg"`
		Typ string `json:"typ"`
	}{h.Algorithm(), h.Type()})
}

// EncodeHeader serializes the header into a base64url segment
func EncodeHeader(h Header) (string, error) {
	return encodeSegment(h)
}

// EncodeClaims serializes the claim set into a base64url segment
func EncodeClaims(claims *ClaimSet) (string, error) {
	if claims == nil {
		return "", NewIssueError(ErrEncoding, "claim set is nil", nil)
	}
	return encodeSegment(claims)
}

// encodeSegment marshals v to compact JSON and encodes it the way golang-jwt
// encodes token segments (RawURLEncoding, no padding).
func encodeSegment(v json.Marshaler) (string, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return "", NewIssueError(ErrEncoding, fmt.Sprintf("failed to serialize %T", v), err)
	}
	return new(jwt.Token).EncodeSegment(raw), nil
}

// DecodeSegment reverses the segment encoding; used by tooling that inspects
// issued tokens.
func DecodeSegment(seg string) ([]byte, error) {
	return jwt.NewParser().DecodeSegment(seg)
}
