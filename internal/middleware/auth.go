package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/tallybook/tally/internal/auth"
	"github.com/tallybook/tally/internal/model"
)

const (
	msgTokenRequired = "Unauthorized, JWT token is required"
	msgTokenInvalid  = "Unauthorized, JWT token wrong or expired"
)

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	Verify(token string) (*model.AuthContext, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Tokens TokenVerifier
}

// Auth returns a middleware that authenticates requests with a session token.
// It reads the token from the Authorization header, verifies it, and injects
// the auth context into the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeJSONError(w, http.StatusUnauthorized, msgTokenRequired)
				return
			}

			authCtx, err := cfg.Tokens.Verify(token)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeJSONError(w, http.StatusUnauthorized, msgTokenInvalid)
				return
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("user_id", authCtx.UserID),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads the session token from the Authorization header.
// Both "Bearer <token>" and a bare token are accepted.
func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}

	if scheme, rest, ok := strings.Cut(header, " "); ok {
		if !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(rest)
	}
	return header
}
