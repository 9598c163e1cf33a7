package middleware

import (
	"errors"
	"net/http"
	"strings"

	"thoughtgraph/pkg/auth"
	apperrors "thoughtgraph/pkg/errors"

	"go.uber.org/zap"
)

// Default request budgets per minute
const (
	DefaultIPRequestsPerMinute   = 100
	DefaultUserRequestsPerMinute = 200
)

// Authenticate validates the bearer token of every request and puts the
// caller into the request context. Requests are rate limited per client IP
// before validation and per user after it. Rejections are written by
// errorHandler.
func Authenticate(validator *auth.JWTValidator, ipLimiter, userLimiter auth.RateLimiter, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respondWithError := func(status int, message string) {
				errorHandler.HandleStatus(w, r, status, message)
			}
			respondUnauthorized := func(message string) {
				respondWithError(http.StatusUnauthorized, message)
			}

			clientIP := getClientIP(r)

			allowed, err := ipLimiter.Allow(r.Context(), clientIP)
			if err != nil {
				logger.Error("Rate limiter error", zap.Error(err))
				respondWithError(http.StatusInternalServerError, "Internal server error")
				return
			}
			if !allowed {
				respondWithError(http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			token := extractToken(r)
			if token == "" {
				respondUnauthorized("Missing authentication token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)

				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					respondUnauthorized("Token has expired")
				case errors.Is(err, auth.ErrInvalidSignature):
					respondUnauthorized("Invalid token signature")
				default:
					respondUnauthorized("Invalid token")
				}
				return
			}

			allowed, err = userLimiter.Allow(r.Context(), claims.UserID)
			if err != nil {
				logger.Error("User rate limiter error", zap.Error(err))
				respondWithError(http.StatusInternalServerError, "Internal server error")
				return
			}
			if !allowed {
				respondWithError(http.StatusTooManyRequests, "User rate limit exceeded")
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
			})

			logger.Debug("Request authenticated",
				zap.String("user_id", claims.UserID),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads the token from the Authorization header, with or
// without the Bearer scheme
func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return authHeader
}

// getClientIP extracts the client IP address
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
