package jwtgen

import (
	"github.com/golang-jwt/jwt/v5"
)

// Signer computes the signature segment of a token.
type Signer struct {
	method jwt.SigningMethod
}

// NewSigner returns an HMAC-SHA256 signer
func NewSigner() *Signer {
	return &Signer{method: jwt.SigningMethodHS256}
}

// Sign computes HMAC-SHA256 over header + "." + payload keyed by key and
// returns it as a base64url segment. The key is only read for the duration of
// the call.
func (s *Signer) Sign(headerSegment, payloadSegment string, key []byte) (string, error) {
	signingInput := headerSegment + "." + payloadSegment

	sig, err := s.method.Sign(signingInput, key)
	if err != nil {
		// Never include the key in the message
		return "", NewIssueError(ErrInvalidKey, "signing key rejected by "+s.method.Alg(), err)
	}

	return new(jwt.Token).EncodeSegment(sig), nil
}

// Algorithm returns the algorithm identifier of the signer
func (s *Signer) Algorithm() string {
	return s.method.Alg()
}
