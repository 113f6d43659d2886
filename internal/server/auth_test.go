package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"sociable/internal/models"
	"sociable/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"email": "Alice@Example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	user := decode[models.UserResponse](t, raw)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.IsStaff)
	assert.Nil(t, user.ProfileID)

	t.Run("duplicate email", func(t *testing.T) {
		resp, raw := env.do(t, http.MethodPost, "/api/register", "", map[string]string{
			"email": "alice@example.com", "password": "password123",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, models.CodeConflict, decode[models.ErrorResponse](t, raw).Code)
	})

	t.Run("short password", func(t *testing.T) {
		resp, raw := env.do(t, http.MethodPost, "/api/register", "", map[string]string{
			"email": "bob@example.com", "password": "short",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, raw).Code)
	})

	t.Run("bad email", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/register", "", map[string]string{
			"email": "not-an-email", "password": "password123",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestTokenLifecycle(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "alice@example.com")

	resp, raw := env.do(t, http.MethodPost, "/api/token", "", map[string]string{
		"email": "alice@example.com", "password": testutil.Password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	pair := decode[tokenPair](t, raw)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	resp, _ = env.do(t, http.MethodGet, "/api/users/me", pair.Access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A refresh token is not an access token.
	resp, _ = env.do(t, http.MethodGet, "/api/users/me", pair.Refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/token/refresh", "", map[string]string{"refresh": pair.Access})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw = env.do(t, http.MethodPost, "/api/token/refresh", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	refreshed := decode[tokenPair](t, raw)
	assert.NotEmpty(t, refreshed.Access)

	resp, _ = env.do(t, http.MethodPost, "/api/token/verify", "", map[string]string{"token": pair.Refresh})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/logout", pair.Access, map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/users/me", pair.Access, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/api/token/refresh", "", map[string]string{"refresh": pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/api/token/verify", "", map[string]string{"token": pair.Access})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Tokens issued later are unaffected.
	resp, _ = env.do(t, http.MethodGet, "/api/users/me", refreshed.Access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutWithForeignRefreshRevokesNothing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.member(t, "alice@example.com", "alice")
	bob := env.member(t, "bob@example.com", "bob")
	bobRefresh, err := env.server.issueToken(bob.user.ID, tokenTypeRefresh)
	require.NoError(t, err)

	resp, _ := env.do(t, http.MethodPost, "/api/logout", alice.token, map[string]string{"refresh": bobRefresh})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/users/me", alice.token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/api/token/refresh", "", map[string]string{"refresh": bobRefresh})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/logout", alice.token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/users/me", alice.token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestObtainTokenRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "alice@example.com")

	resp, _ := env.do(t, http.MethodPost, "/api/token", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, env.db.Model(user).Update("is_active", false).Error)
	resp, _ = env.do(t, http.MethodPost, "/api/token", "", map[string]string{
		"email": "alice@example.com", "password": testutil.Password,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "alice@example.com")
	token := env.tokenFor(t, user)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, raw := env.send(t, req)
			assert.Equal(t, tt.want, resp.StatusCode, string(raw))
		})
	}

	t.Run("inactive user", func(t *testing.T) {
		require.NoError(t, env.db.Model(user).Update("is_active", false).Error)
		resp, _ := env.do(t, http.MethodGet, "/api/posts", token, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestTokenSignedWithOtherSecretIsRejected(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "alice@example.com")

	other := newTestEnv(t)
	other.server.config.JWTSecret = "a-completely-different-secret-value"
	forged, err := other.server.issueToken(user.ID, tokenTypeAccess)
	require.NoError(t, err)

	resp, _ := env.do(t, http.MethodGet, "/api/users/me", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
