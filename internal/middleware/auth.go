package middleware

import (
	"context"
	"net/http"

	"github.com/lettersontherocks/AI-Interview/internal/utils"
)

const userIDKey contextKey = "user_id"

// Authenticate reads an optional Bearer token. With required set, requests
// without a valid token are rejected with 401; otherwise they pass through
// anonymously.
func Authenticate(secret string, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := utils.VerifyToken(r, secret)
			if err != nil {
				if required {
					utils.JSONError(w, http.StatusUnauthorized, "not_authenticated", "请先登录")
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID attaches an authenticated user id to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// RequireSecret rejects requests whose header does not carry the shared
// secret. An empty secret disables the check.
func RequireSecret(header, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" && r.Header.Get(header) != secret {
				utils.JSONError(w, http.StatusUnauthorized, "invalid_secret", "invalid "+header)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
