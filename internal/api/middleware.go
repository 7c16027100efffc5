package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// requireAuth validates the bearer token when login is configured. Without a
// password hash every request passes through.
func (s *server) requireAuth(next http.Handler) http.Handler {
	if !s.auth.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			s.jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}

		claims, err := auth.ValidateToken(s.auth.Secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			s.jsonError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFrom returns the JWT claims set by requireAuth, or nil when auth is off.
func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// userField names the logged-in user on log lines of changes.
func userField(ctx context.Context) zap.Field {
	if claims := claimsFrom(ctx); claims != nil {
		return zap.String("user", claims.Username)
	}
	return zap.Skip()
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument logs and counts requests for one route pattern.
func (s *server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		if s.metrics != nil {
			s.metrics.ObserveRequest(r.Method, route, rec.status, elapsed)
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.RequestURI()),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed.Round(time.Millisecond)),
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Warn("request", fields...)
			return
		}
		s.logger.Info("request", fields...)
	})
}

// cors answers preflight requests and sets the allow headers for origins in
// the configured list. "*" allows any origin.
func (s *server) cors(next http.Handler) http.Handler {
	if len(s.origins) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
