package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"sociable/internal/config"
	"sociable/internal/models"
	"sociable/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	redis  *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		Env:                  "test",
		Port:                 "0",
		JWTSecret:            "test-secret-with-enough-length-for-hs256",
		UploadDir:            t.TempDir(),
		ImageMaxUploadSizeMB: 1,
	}
	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	s.userService.WithBcryptCost(bcrypt.MinCost)

	return &testEnv{server: s, app: s.NewApp(), db: db, redis: mr}
}

// tokenFor issues an access token without going through /token.
func (e *testEnv) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.server.issueToken(user.ID, tokenTypeAccess)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// member is a user with a profile and a token.
type member struct {
	user    *models.User
	profile *models.Profile
	token   string
}

func (e *testEnv) member(t *testing.T, email, username string) member {
	t.Helper()
	user := testutil.CreateUser(t, e.db, email)
	profile := testutil.CreateProfile(t, e.db, user.ID, username)
	return member{user: user, profile: profile, token: e.tokenFor(t, user)}
}

func decodeBody(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
