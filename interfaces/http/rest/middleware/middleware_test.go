package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"thoughtgraph/pkg/auth"
	apperrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/observability"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func testJWT(t *testing.T) (*auth.JWTValidator, *auth.JWTGenerator) {
	t.Helper()
	cfg := auth.JWTConfig{SigningMethod: "HS256", SecretKey: testSecret, Issuer: "thoughtgraph"}
	validator, err := auth.NewJWTValidator(cfg)
	require.NoError(t, err)
	generator, err := auth.NewJWTGenerator(cfg)
	require.NoError(t, err)
	return validator, generator
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write([]byte(user.UserID))
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

func TestAuthenticate(t *testing.T) {
	validator, generator := testJWT(t)
	token, err := generator.GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid bearer token", header: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "lowercase scheme", header: "bearer " + token, wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantBody: "Missing authentication token"},
		{name: "garbage token", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantBody: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := Authenticate(validator, auth.NewIPRateLimiter(100), auth.NewUserRateLimiter(100), apperrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(http.HandlerFunc(echoUser))
			req := httptest.NewRequest(http.MethodGet, "/api/graphs/list", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			// Act
			h.ServeHTTP(w, req)

			// Assert
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	validator, _ := testJWT(t)
	other, err := auth.NewJWTGenerator(auth.JWTConfig{SecretKey: "another-secret-that-is-long-enough!!", Issuer: "thoughtgraph"})
	require.NoError(t, err)
	token, err := other.GenerateToken("user-1", "")
	require.NoError(t, err)

	h := Authenticate(validator, auth.NewIPRateLimiter(100), auth.NewUserRateLimiter(100), apperrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(http.HandlerFunc(echoUser))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token signature")
}

func TestAuthenticate_RateLimited(t *testing.T) {
	validator, _ := testJWT(t)
	h := Authenticate(validator, denyAll{}, auth.NewUserRateLimiter(100), apperrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(http.HandlerFunc(echoUser))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"RATE_LIMITED"`)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", getClientIP(req))
}

func TestLogger_RecordsRoutePattern(t *testing.T) {
	metrics := observability.NewCollector("test")
	r := chi.NewRouter()
	r.Use(Logger(zap.NewNop(), metrics))
	r.Get("/api/graphs/{graphID}", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
		w.WriteHeader(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/graphs/abc", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/api/graphs/{graphID}", "404")))
}
