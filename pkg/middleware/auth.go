package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"examprep-contest-core/internal/auth"
	"examprep-contest-core/pkg/reqctx"
)

// Authorizer resolves a bearer access token to a user id, following spec
// §4.10's session authorizer sequence.
type Authorizer interface {
	Authorize(ctx context.Context, accessToken string) (string, error)
}

type errorBody struct {
	Code string `json:"code"`
}

// AuthMiddleware wraps an Authorizer for chi routes. Unlike the teacher's
// middleware, it distinguishes SESSION_EXPIRED from UNAUTHORIZED in the
// response body, because spec §8 "Session exclusivity" tests for it.
func AuthMiddleware(authorizer Authorizer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, "UNAUTHORIZED", http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == "" {
				writeAuthError(w, "UNAUTHORIZED", http.StatusUnauthorized)
				return
			}

			userID, err := authorizer.Authorize(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrSessionExpired) {
					writeAuthError(w, "SESSION_EXPIRED", http.StatusUnauthorized)
					return
				}
				writeAuthError(w, "UNAUTHORIZED", http.StatusUnauthorized)
				return
			}

			ctx := reqctx.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Code: code})
}

// GetUserIDFromContext extracts the user ID the middleware resolved.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	return reqctx.UserID(ctx)
}
