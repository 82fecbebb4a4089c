package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	handler := AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("GET", "/users/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewarePassesUserID(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	token, err := GenerateAccessToken(9)
	require.NoError(t, err)

	var gotID uint
	handler := AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(9), gotID)
}

// A refresh token must not open authenticated endpoints.
func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	token, err := GenerateRefreshToken(9)
	require.NoError(t, err)

	handler := AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest("GET", "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuthAnonymous(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	handler := OptionalAuth(func(w http.ResponseWriter, r *http.Request) {
		_, err := GetUserIDFromContext(r.Context())
		assert.Error(t, err)
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("GET", "/posts", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuthIgnoresBadToken(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	handler := OptionalAuth(func(w http.ResponseWriter, r *http.Request) {
		_, err := GetUserIDFromContext(r.Context())
		assert.Error(t, err)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/posts", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuthDecodesValidToken(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	token, err := GenerateAccessToken(3)
	require.NoError(t, err)

	handler := OptionalAuth(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserIDFromContext(r.Context())
		assert.NoError(t, err)
		assert.Equal(t, uint(3), id)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/posts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
