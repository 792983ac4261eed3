package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer secret")
	require.NoError(t, err)
	assert.Equal(t, "secret", token)

	token, err = BearerToken("bearer  spaced ")
	require.NoError(t, err)
	assert.Equal(t, "spaced", token)

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer"} {
		_, err := BearerToken(header)
		assert.ErrorIs(t, err, ErrUnauthorized, header)
	}
}

func TestTokenMatches(t *testing.T) {
	assert.True(t, TokenMatches("s3cret", "s3cret"))
	assert.False(t, TokenMatches("s3cret", "s3cre"))
	assert.False(t, TokenMatches("", ""))
}

func TestAdminContext(t *testing.T) {
	_, ok := AdminFromContext(context.Background())
	assert.False(t, ok)

	subject, ok := AdminFromContext(ContextWithAdmin(context.Background(), "ops"))
	assert.True(t, ok)
	assert.Equal(t, "ops", subject)
}

func TestRequireAdmin(t *testing.T) {
	var seen bool
	handler := RequireAdmin("s3cret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = AdminFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/export/preview", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, seen)

	req = httptest.NewRequest(http.MethodPost, "/admin/export/preview", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/export/preview", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, seen)
}
