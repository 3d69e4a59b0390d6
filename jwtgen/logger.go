package jwtgen

import (
	"log/slog"
	"time"
)

// IssuanceEvent represents a structured issuance log entry
type IssuanceEvent struct {
	EventType     string        // "success" or "failure"
	Timestamp     time.Time     // Event timestamp
	RequestID     string        // Correlation ID
	TokenID       string        // jti, when configured
	Issuer        string        // iss requested
	Audience      string        // aud requested
	Subject       string        // sub requested (may be empty)
	Algorithm     string        // Always HS256
	ClaimCount    int           // Claims in the payload (0 on failure)
	FailureReason string        // Error code (on failure)
	TokenPreview  string        // Redacted token preview
	Latency       time.Duration // Issuance latency
}

// LogValue implements slog.LogValuer for structured logging with redaction
func (e IssuanceEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("event", e.EventType),
		slog.Time("timestamp", e.Timestamp),
		slog.String("request_id", e.RequestID),
		slog.String("token_id", e.TokenID),
		slog.String("issuer", e.Issuer),
		slog.String("audience", e.Audience),
		slog.String("subject", e.Subject),
		slog.String("algorithm", e.Algorithm),
		slog.Int("claim_count", e.ClaimCount),
		slog.String("failure_reason", e.FailureReason),
		slog.String("token", redactToken(e.TokenPreview)),
		slog.Duration("latency", e.Latency),
	)
}

// redactToken keeps only the first 8 characters, which fall inside the header segment
func redactToken(token string) string {
	if len(token) == 0 {
		return ""
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}

// logIssuanceEvent emits an issuance event via the configured logger
func logIssuanceEvent(logger *slog.Logger, event IssuanceEvent) {
	if logger == nil {
		return // Logging disabled
	}

	if event.EventType == "failure" {
		logger.Warn("token issuance failed", "issue_event", event)
	} else {
		logger.Info("token issued", "issue_event", event)
	}
}
