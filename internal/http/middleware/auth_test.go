package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/relocation-backend/internal/platform/ctxutil"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func whoami(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		c.String(http.StatusOK, "<nil>")
		return
	}
	c.String(http.StatusOK, rd.ExternalUserID)
}

func newAuthRouter(t *testing.T, cfg AuthConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	am, err := NewAuthMiddleware(logger.Nop(), cfg)
	if err != nil {
		t.Fatalf("NewAuthMiddleware: %v", err)
	}
	r := gin.New()
	r.Use(AttachRequestContext())
	r.GET("/required", am.RequireUser(), whoami)
	r.GET("/optional", am.OptionalUser(), whoami)
	return r
}

func TestAuthMiddleware_JWT(t *testing.T) {
	r := newAuthRouter(t, AuthConfig{Mode: AuthModeJWT, JWTSecret: testSecret})
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "user-42", ExpiresAt: future})
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "user-42", ExpiresAt: past})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "user-42"})
	wrongAlg := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{Subject: "user-42"})
	noSub := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{ExpiresAt: future})

	cases := []struct {
		name   string
		path   string
		token  string
		status int
		body   string
	}{
		{"required valid", "/required", valid, http.StatusOK, "user-42"},
		{"required missing", "/required", "", http.StatusUnauthorized, ""},
		{"required expired", "/required", expired, http.StatusUnauthorized, ""},
		{"required wrong key", "/required", wrongKey, http.StatusUnauthorized, ""},
		{"required wrong alg", "/required", wrongAlg, http.StatusUnauthorized, ""},
		{"required no subject", "/required", noSub, http.StatusUnauthorized, ""},
		{"optional valid", "/optional", valid, http.StatusOK, "user-42"},
		{"optional missing", "/optional", "", http.StatusOK, ctxutil.AnonymousUserID},
		{"optional invalid", "/optional", wrongKey, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status: got=%d want=%d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("identity: got=%q want=%q", rec.Body.String(), tc.body)
			}
		})
	}
}

func TestAuthMiddleware_Header(t *testing.T) {
	r := newAuthRouter(t, AuthConfig{Mode: AuthModeHeader})
	cases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"required present", "/required", "ext-1", http.StatusOK, "ext-1"},
		{"required missing", "/required", "", http.StatusUnauthorized, ""},
		{"required anonymous", "/required", "Anonymous", http.StatusUnauthorized, ""},
		{"optional missing", "/optional", "", http.StatusOK, ctxutil.AnonymousUserID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("X-User-Id", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status: got=%d want=%d", rec.Code, tc.status)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("identity: got=%q want=%q", rec.Body.String(), tc.body)
			}
		})
	}
}

func TestNewAuthMiddleware_Config(t *testing.T) {
	if _, err := NewAuthMiddleware(logger.Nop(), AuthConfig{Mode: AuthModeJWT}); err == nil {
		t.Fatalf("jwt mode without secret must fail")
	}
	if _, err := NewAuthMiddleware(logger.Nop(), AuthConfig{Mode: "basic"}); err == nil {
		t.Fatalf("unknown mode must fail")
	}
}

func TestAttachTraceContext_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		td, ok := ctxutil.TraceFrom(c.Request.Context())
		if !ok || td.TraceID == "" {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, td.RequestID)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "req-7" {
		t.Fatalf("request id: code=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") != "req-7" || rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("response headers: %v", rec.Header())
	}
}
