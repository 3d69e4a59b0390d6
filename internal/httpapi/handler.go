// Package httpapi exposes token issuance over HTTP with gin.
package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Wang-tianhao/Vibrant-tokengen-go/internal/metrics"
	"github.com/Wang-tianhao/Vibrant-tokengen-go/jwtgen"
)

// RequestIDHeader carries the correlation ID in requests and responses
const RequestIDHeader = "X-Request-ID"

const reasonInvalidRequest = "INVALID_REQUEST"

// Settings are the server-side claim values. Requests can never change the
// issuer, audience, time claims or secret. The secret is held for the
// lifetime of the router.
type Settings struct {
	Issuer                 string
	Audience               string
	Secret                 []byte
	DefaultExpirationHours int
	MaxExpirationHours     int

	// JWTID marks jti as server-assigned, so requests may not set it either
	JWTID bool
}

// serverClaims are always set by the server and may not appear in request claims
var serverClaims = map[string]bool{
	jwtgen.ClaimIssuer:    true,
	jwtgen.ClaimAudience:  true,
	jwtgen.ClaimIssuedAt:  true,
	jwtgen.ClaimNotBefore: true,
	jwtgen.ClaimExpiresAt: true,
}

// Options wires the router. Metrics, Limiter and Logger are optional.
type Options struct {
	Issuer   *jwtgen.Issuer
	Settings Settings
	Metrics  *metrics.Collector
	Limiter  *rate.Limiter
	Logger   *slog.Logger
}

type issueRequest struct {
	Subject         string `json:"subject"`
	Claims          string `json:"claims"`
	ExpirationHours int    `json:"expiration_hours"`
}

type issueResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

type handler struct {
	opts Options
}

// NewRouter builds the gin engine serving POST /v1/tokens, GET /healthz and,
// when a collector is configured, GET /metrics.
func NewRouter(opts Options) *gin.Engine {
	opts.Settings.Secret = bytes.Clone(opts.Settings.Secret)
	h := &handler{opts: opts}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(opts.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	v1 := r.Group("/v1")
	v1.POST("/tokens", rateLimit(opts.Limiter, opts.Metrics), h.issueToken)

	return r
}

func (h *handler) issueToken(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"reason":  reasonInvalidRequest,
			"message": "request body must be a JSON object",
		})
		return
	}

	settings := h.opts.Settings
	hours := req.ExpirationHours
	if hours == 0 {
		hours = settings.DefaultExpirationHours
	}
	if hours > settings.MaxExpirationHours {
		h.fail(c, jwtgen.NewIssueError(jwtgen.ErrInvalidExpiration, "expiration hours exceed the server maximum", nil), 0)
		return
	}

	if err := checkRequestClaims(req.Claims, settings.JWTID); err != nil {
		h.fail(c, err, 0)
		return
	}

	bundle := jwtgen.ParameterBundle{
		Issuer:           settings.Issuer,
		Audience:         settings.Audience,
		Subject:          req.Subject,
		Secret:           settings.Secret,
		ExpirationHours:  hours,
		AdditionalClaims: req.Claims,
	}
	if err := bundle.Validate(); err != nil {
		h.fail(c, err, 0)
		return
	}

	start := time.Now()
	token, err := h.opts.Issuer.IssueContext(c.Request.Context(), bundle)
	if err != nil {
		h.fail(c, err, time.Since(start))
		return
	}
	h.observe("success", time.Since(start))

	c.JSON(http.StatusOK, issueResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: hours * 3600,
	})
}

// checkRequestClaims rejects request claims that would override a
// server-assigned claim.
func checkRequestClaims(input string, serverJWTID bool) error {
	names, err := jwtgen.AdditionalClaimNames(input)
	if err != nil {
		return err
	}
	for _, name := range names {
		if serverClaims[name] || (serverJWTID && name == jwtgen.ClaimJWTID) {
			return jwtgen.NewIssueError(
				jwtgen.ErrReservedClaim,
				fmt.Sprintf("claim %q is set by the server and cannot be overridden", name),
				nil,
			)
		}
	}
	return nil
}

func (h *handler) fail(c *gin.Context, err error, elapsed time.Duration) {
	h.observe(string(jwtgen.CodeOf(err)), elapsed)
	c.AbortWithStatusJSON(statusFor(err), buildErrorResponse(err))
}

func (h *handler) observe(result string, elapsed time.Duration) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.ObserveIssue(result, elapsed)
	}
}

// statusFor maps caller mistakes to 400 and everything else to 500
func statusFor(err error) int {
	switch jwtgen.CodeOf(err) {
	case jwtgen.ErrMalformedClaim, jwtgen.ErrReservedClaim, jwtgen.ErrInvalidExpiration, jwtgen.ErrInvalidBundle:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// buildErrorResponse constructs the error body. Messages are only exposed for
// caller mistakes; server-side failures report the code alone.
func buildErrorResponse(err error) gin.H {
	status := statusFor(err)
	response := gin.H{
		"error":  "internal_error",
		"reason": string(jwtgen.CodeOf(err)),
	}

	if status == http.StatusBadRequest {
		response["error"] = "bad_request"
		var issueErr *jwtgen.IssueError
		if errors.As(err, &issueErr) && issueErr.Message != "" {
			response["message"] = issueErr.Message
		}
	}

	return response
}

// requestID propagates X-Request-ID or generates one, and stores it in the
// request context for issuance logs.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(jwtgen.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// Pre-serialized 429 body
var errBodyTooManyRequests = []byte(`{"error":"too_many_requests","message":"rate limit exceeded, retry later"}`)

func rateLimit(limiter *rate.Limiter, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limiter.Allow() {
			c.Next()
			return
		}
		if collector != nil {
			collector.ObserveRateLimited()
		}
		c.Header("Retry-After", "1")
		c.Data(http.StatusTooManyRequests, "application/json", errBodyTooManyRequests)
		c.Abort()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if logger == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.Writer.Header().Get(RequestIDHeader),
		)
	}
}
