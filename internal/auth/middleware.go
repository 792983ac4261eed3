package auth

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireAdmin rejects requests whose bearer token does not match token.
func RequireAdmin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil || !TokenMatches(token, got) {
				zap.L().Warn("admin request rejected",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAdmin(r.Context(), "admin-token")))
		})
	}
}
