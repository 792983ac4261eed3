package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/rotisserie/eris"
)

type contextKey string

const adminKey contextKey = "admin"

// ErrUnauthorized is returned when a request carries no usable admin token.
var ErrUnauthorized = eris.New("unauthorized")

// ContextWithAdmin marks the context as authenticated for admin routes.
func ContextWithAdmin(ctx context.Context, subject string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, adminKey, subject)
}

// AdminFromContext returns the authenticated admin subject, if any.
func AdminFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	subject, ok := ctx.Value(adminKey).(string)
	if !ok || subject == "" {
		return "", false
	}
	return subject, true
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrUnauthorized
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrUnauthorized
	}
	return token, nil
}

// TokenMatches compares tokens in constant time. An empty expected token
// never matches.
func TokenMatches(expected, got string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
