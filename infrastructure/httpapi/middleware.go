package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"backchannel/auth"
	"backchannel/errors"
	"backchannel/observability"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the token-verified user id, empty for anonymous callers.
func UserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// withUser resolves the bearer token when present and stores the verified
// user id in the request context. Invalid tokens are treated as absent.
func withUser(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := bearerToken(r); raw != "" {
				if userID, err := tokens.Validate(raw); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth guards owner-only routes.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r) == "" {
			writeError(w, errors.Authorization(errors.CodeUnauthorized, "Authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// requestLogger logs one line per request with the route pattern, so high
// cardinality ids stay out of the logs and the metrics labels.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			elapsed := time.Since(start)
			log.Debug("http request",
				"method", r.Method,
				"path", pattern,
				"status", rec.status,
				"duration_ms", elapsed.Milliseconds())
			observability.HTTPRequestsTotal.
				WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
			observability.HTTPRequestDuration.
				WithLabelValues(r.Method, pattern).Observe(elapsed.Seconds())
		})
	}
}
