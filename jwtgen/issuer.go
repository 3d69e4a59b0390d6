package jwtgen

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// WithRequestID attaches a correlation ID that issuance events will carry
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID returns the correlation ID stored by WithRequestID
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// Issuer runs the issuance pipeline: claim set, encoded segments, signature,
// compact token. It holds no per-token state and may be shared across goroutines.
type Issuer struct {
	cfg *Config
}

// New returns an issuer for cfg
func New(cfg *Config) *Issuer {
	return &Issuer{cfg: cfg}
}

// NewIssuer is a shorthand for New(NewConfig(opts...))
func NewIssuer(opts ...ConfigOption) (*Issuer, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

// Issue produces one signed compact token for bundle.
func (i *Issuer) Issue(bundle ParameterBundle) (string, error) {
	return i.IssueContext(context.Background(), bundle)
}

// IssueContext is Issue with a request ID taken from ctx for log correlation.
// ctx is not used for cancellation; issuance is synchronous and local.
func (i *Issuer) IssueContext(ctx context.Context, bundle ParameterBundle) (string, error) {
	startTime := time.Now()

	requestID, _ := GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	var jwtID string
	if i.cfg.jwtIDFunc != nil {
		jwtID = i.cfg.jwtIDFunc()
	}

	token, claims, err := i.issue(bundle, jwtID)
	if err != nil {
		i.logFailure(requestID, jwtID, bundle, err, time.Since(startTime))
		return "", err
	}

	i.logSuccess(requestID, jwtID, bundle, claims, token, time.Since(startTime))
	return token, nil
}

func (i *Issuer) issue(bundle ParameterBundle, jwtID string) (string, *ClaimSet, error) {
	// Single clock read: iat, nbf and exp all derive from it
	now := i.cfg.clock().Unix()

	claims, err := buildClaims(bundle, now, jwtID)
	if err != nil {
		return "", nil, err
	}

	headerSegment, err := EncodeHeader(Header{})
	if err != nil {
		return "", nil, err
	}
	payloadSegment, err := EncodeClaims(claims)
	if err != nil {
		return "", nil, err
	}

	signatureSegment, err := i.cfg.signer.Sign(headerSegment, payloadSegment, bundle.Secret)
	if err != nil {
		return "", nil, err
	}

	return Assemble(headerSegment, payloadSegment, signatureSegment), claims, nil
}

// logSuccess logs a successful issuance event
func (i *Issuer) logSuccess(requestID, jwtID string, bundle ParameterBundle, claims *ClaimSet, token string, latency time.Duration) {
	if i.cfg.Logger() == nil {
		return
	}

	event := IssuanceEvent{
		EventType:    "success",
		Timestamp:    time.Now(),
		RequestID:    requestID,
		TokenID:      jwtID,
		Issuer:       bundle.Issuer,
		Audience:     bundle.Audience,
		Subject:      bundle.Subject,
		Algorithm:    i.cfg.Algorithm(),
		ClaimCount:   claims.Len(),
		TokenPreview: token,
		Latency:      latency,
	}

	logIssuanceEvent(i.cfg.Logger(), event)
}

// logFailure logs a failed issuance event
func (i *Issuer) logFailure(requestID, jwtID string, bundle ParameterBundle, err error, latency time.Duration) {
	if i.cfg.Logger() == nil {
		return
	}

	event := IssuanceEvent{
		EventType:     "failure",
		Timestamp:     time.Now(),
		RequestID:     requestID,
		TokenID:       jwtID,
		Issuer:        bundle.Issuer,
		Audience:      bundle.Audience,
		Subject:       bundle.Subject,
		Algorithm:     i.cfg.Algorithm(),
		FailureReason: string(CodeOf(err)),
		Latency:       latency,
	}

	logIssuanceEvent(i.cfg.Logger(), event)
}
