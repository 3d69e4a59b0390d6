package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Wang-tianhao/Vibrant-tokengen-go/internal/metrics"
	"github.com/Wang-tianhao/Vibrant-tokengen-go/jwtgen"
)

var testSecret = []byte("server-secret")

var testNow = time.Unix(1700000000, 0)

func testSettings() Settings {
	return Settings{
		Issuer:                 "auth.example",
		Audience:               "api.example",
		Secret:                 testSecret,
		DefaultExpirationHours: 1,
		MaxExpirationHours:     24,
	}
}

func newTestRouter(t *testing.T, mutate func(*Options)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer, err := jwtgen.NewIssuer(jwtgen.WithFixedTime(testNow))
	require.NoError(t, err)

	opts := Options{
		Issuer:   issuer,
		Settings: testSettings(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewRouter(opts)
}

func postTokens(router *gin.Engine, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/tokens", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func TestIssueTokenSuccess(t *testing.T) {
	router := newTestRouter(t, nil)

	w := postTokens(router, `{"subject":"user-42","claims":"role=admin","expiration_hours":2}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.Equal(t, float64(7200), body["expires_in"])

	token, ok := body["token"].(string)
	require.True(t, ok)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return testSecret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return testNow }),
	)
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "auth.example", claims["iss"])
	assert.Equal(t, "api.example", claims["aud"])
	assert.Equal(t, "user-42", claims["sub"])
	assert.Equal(t, "admin", claims["role"])
	assert.Equal(t, float64(testNow.Unix()+7200), claims["exp"])
}

func TestIssueTokenDefaults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Empty object", body: `{}`},
		{name: "Empty body", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, nil)

			w := postTokens(router, tt.body, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, float64(3600), decodeBody(t, w)["expires_in"])
		})
	}
}

// TestIssueTokenCannotOverrideServerClaims tests that the request body cannot pick the secret or rewrite server claims
func TestIssueTokenCannotOverrideServerClaims(t *testing.T) {
	router := newTestRouter(t, nil)

	w := postTokens(router, `{"secret":"attacker","issuer":"evil"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	token := decodeBody(t, w)["token"].(string)
	_, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return testSecret, nil
	}, jwt.WithIssuer("auth.example"), jwt.WithTimeFunc(func() time.Time { return testNow }))
	assert.NoError(t, err)

	t.Run("Request claims", func(t *testing.T) {
		tests := []struct {
			name      string
			claims    string
			jwtID     bool
			wantClaim string
		}{
			{name: "Issuer and audience", claims: "iss=evil.example,aud=payments.example", wantClaim: "iss"},
			{name: "Audience after a normal claim", claims: "role=admin,aud=payments.example", wantClaim: "aud"},
			{name: "Expiration", claims: "exp=9999999999", wantClaim: "exp"},
			{name: "Not before", claims: "nbf=0", wantClaim: "nbf"},
			{name: "Issued at", claims: "iat=0", wantClaim: "iat"},
			{name: "Padded name", claims: " iss =evil", wantClaim: "iss"},
			{name: "Server-assigned jti", claims: "jti=fixed", jwtID: true, wantClaim: "jti"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				router := newTestRouter(t, func(o *Options) { o.Settings.JWTID = tt.jwtID })

				body, err := json.Marshal(map[string]string{"claims": tt.claims})
				require.NoError(t, err)
				w := postTokens(router, string(body), nil)
				require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

				resp := decodeBody(t, w)
				assert.Equal(t, string(jwtgen.ErrReservedClaim), resp["reason"])
				assert.Contains(t, resp["message"], `"`+tt.wantClaim+`"`)
				assert.NotContains(t, w.Body.String(), "token\":")
			})
		}
	})

	t.Run("Caller jti allowed when the server does not assign one", func(t *testing.T) {
		router := newTestRouter(t, nil)

		w := postTokens(router, `{"claims":"jti=caller-id,sub=x"}`, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(decodeBody(t, w)["token"].(string), claims, func(*jwt.Token) (interface{}, error) {
			return testSecret, nil
		}, jwt.WithTimeFunc(func() time.Time { return testNow }))
		require.NoError(t, err)
		assert.Equal(t, "caller-id", claims["jti"])
		assert.Equal(t, "auth.example", claims["iss"])
	})
}

// TestRouterCopiesSecret tests that later changes to the caller's slice do not reach signing
func TestRouterCopiesSecret(t *testing.T) {
	secret := []byte("server-secret")
	router := newTestRouter(t, func(o *Options) { o.Settings.Secret = secret })
	copy(secret, "XXXXXXXXXXXXX")

	w := postTokens(router, `{}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := jwt.Parse(decodeBody(t, w)["token"].(string), func(*jwt.Token) (interface{}, error) {
		return []byte("server-secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return testNow }))
	assert.NoError(t, err)
}

func TestIssueTokenErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantReason  string
		wantMessage string
	}{
		{
			name:        "Malformed claim",
			body:        `{"claims":"role"}`,
			wantStatus:  http.StatusBadRequest,
			wantReason:  string(jwtgen.ErrMalformedClaim),
			wantMessage: `malformed claim "role", expected key=value`,
		},
		{
			name:        "Above server maximum",
			body:        `{"expiration_hours":25}`,
			wantStatus:  http.StatusBadRequest,
			wantReason:  string(jwtgen.ErrInvalidExpiration),
			wantMessage: "expiration hours exceed the server maximum",
		},
		{
			name:        "Negative hours",
			body:        `{"expiration_hours":-1}`,
			wantStatus:  http.StatusBadRequest,
			wantReason:  string(jwtgen.ErrInvalidBundle),
			wantMessage: "expiration hours must be between 1 and 255, got -1",
		},
		{
			name:        "Not JSON",
			body:        `role=admin`,
			wantStatus:  http.StatusBadRequest,
			wantReason:  reasonInvalidRequest,
			wantMessage: "request body must be a JSON object",
		},
		{
			name:        "Wrong field type",
			body:        `{"expiration_hours":"two"}`,
			wantStatus:  http.StatusBadRequest,
			wantReason:  reasonInvalidRequest,
			wantMessage: "request body must be a JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, nil)

			w := postTokens(router, tt.body, nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			body := decodeBody(t, w)
			assert.Equal(t, "bad_request", body["error"])
			assert.Equal(t, tt.wantReason, body["reason"])
			assert.Equal(t, tt.wantMessage, body["message"])
			assert.NotContains(t, w.Body.String(), string(testSecret))
		})
	}
}

func TestBuildErrorResponse(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantError   string
		wantMessage bool
	}{
		{
			name:        "Malformed claim",
			err:         jwtgen.NewIssueError(jwtgen.ErrMalformedClaim, "malformed claim \"x\"", nil),
			wantStatus:  http.StatusBadRequest,
			wantError:   "bad_request",
			wantMessage: true,
		},
		{
			name:       "Invalid key hides details",
			err:        jwtgen.NewIssueError(jwtgen.ErrInvalidKey, "signing key rejected by HS256", jwt.ErrInvalidKey),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
		{
			name:       "Clock error",
			err:        jwtgen.NewIssueError(jwtgen.ErrClock, "clock reports a time before the Unix epoch (-1)", nil),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
		{
			name:       "Unknown error",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, statusFor(tt.err))

			resp := buildErrorResponse(tt.err)
			assert.Equal(t, tt.wantError, resp["error"])
			assert.Equal(t, string(jwtgen.CodeOf(tt.err)), resp["reason"])
			_, hasMessage := resp["message"]
			assert.Equal(t, tt.wantMessage, hasMessage)
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Run("Propagated", func(t *testing.T) {
		router := newTestRouter(t, nil)

		w := postTokens(router, `{}`, http.Header{RequestIDHeader: []string{"req-123"}})
		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("Generated", func(t *testing.T) {
		router := newTestRouter(t, nil)

		w := postTokens(router, `{}`, nil)
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("Reaches issuance log", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		issuer, err := jwtgen.NewIssuer(jwtgen.WithFixedTime(testNow), jwtgen.WithLogger(logger))
		require.NoError(t, err)

		router := newTestRouter(t, func(o *Options) { o.Issuer = issuer })
		w := postTokens(router, `{}`, http.Header{RequestIDHeader: []string{"req-log"}})
		require.Equal(t, http.StatusOK, w.Code)

		assert.Contains(t, buf.String(), `"request_id":"req-log"`)
	})
}

func TestRateLimit(t *testing.T) {
	collector := metrics.New()
	router := newTestRouter(t, func(o *Options) {
		o.Limiter = rate.NewLimiter(0, 1)
		o.Metrics = collector
	})

	w := postTokens(router, `{}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = postTokens(router, `{}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, string(errBodyTooManyRequests), w.Body.String())

	// Health checks are never limited
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	hw := httptest.NewRecorder()
	router.ServeHTTP(hw, req)
	assert.Equal(t, http.StatusOK, hw.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mw := httptest.NewRecorder()
	router.ServeHTTP(mw, req)
	require.Equal(t, http.StatusOK, mw.Code)
	assert.Contains(t, mw.Body.String(), "tokengen_rate_limit_hits_total 1")
	assert.Contains(t, mw.Body.String(), `tokengen_tokens_issued_total{result="success"} 1`)
}

func TestMetricsRecordFailures(t *testing.T) {
	collector := metrics.New()
	router := newTestRouter(t, func(o *Options) { o.Metrics = collector })

	postTokens(router, `{"claims":"bad"}`, nil)
	postTokens(router, `{"claims":"ok=1"}`, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), `tokengen_tokens_issued_total{result="MALFORMED_CLAIM"} 1`)
	assert.Contains(t, w.Body.String(), `tokengen_tokens_issued_total{result="success"} 1`)
}

func TestMetricsRouteAbsentWithoutCollector(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
