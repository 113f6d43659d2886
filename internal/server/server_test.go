package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"sociable/internal/middleware"
	"sociable/internal/models"
	"sociable/internal/repository"
	"sociable/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := env.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	body := decode[map[string]any](t, raw)
	assert.Equal(t, "healthy", body["status"])

	env.redis.Close()
	resp, raw = env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	checks := decode[map[string]any](t, raw)["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unhealthy", checks["redis"])
}

func TestNewServerWithDepsRequiresDatabase(t *testing.T) {
	_, err := NewServerWithDeps(nil, nil, nil)
	assert.Error(t, err)
}

func TestServerWithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	s, err := NewServerWithDeps(env.server.config, env.db, nil)
	require.NoError(t, err)
	app := s.NewApp()

	alice := env.member(t, "alice@example.com", "alice")
	token, err := s.issueToken(alice.user.ID, tokenTypeAccess)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/posts/schedule-placeholder", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/profiles/%d", alice.profile.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t)
	alice := env.member(t, "alice@example.com", "alice")
	bob := env.member(t, "bob@example.com", "bob")
	staff := testutil.CreateStaff(t, env.db, "admin@example.com")
	testutil.CreatePost(t, env.db, bob.user.ID, "bob's post")

	resp, raw := env.do(t, http.MethodPatch, "/api/users/me", alice.token, map[string]string{"email": "Alice2@Example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "alice2@example.com", decode[models.UserResponse](t, raw).Email)

	resp, _ = env.do(t, http.MethodPatch, "/api/users/me", alice.token, map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPatch, "/api/users/me", alice.token, map[string]string{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", bob.user.ID), alice.token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", bob.user.ID), env.tokenFor(t, staff), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int64(0), testutil.CountRows(t, env.db, "posts"))

	resp, _ = env.do(t, http.MethodGet, "/api/users/me", bob.token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/users/me", alice.token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int64(0), testutil.CountRows(t, env.db, "profiles"))
}

func TestAccountDeletionLogsCallerOnce(t *testing.T) {
	env := newTestEnv(t)
	alice := env.member(t, "alice@example.com", "alice")
	bob := env.member(t, "bob@example.com", "bob")
	staff := testutil.CreateStaff(t, env.db, "admin@example.com")

	var buf bytes.Buffer
	middleware.ConfigureLogger("production", &buf)
	t.Cleanup(func() { middleware.ConfigureLogger("test", &bytes.Buffer{}) })

	resp, _ := env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", bob.user.ID), env.tokenFor(t, staff), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/users/me", alice.token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	records := map[string]map[string]any{}
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if !bytes.Contains(line, []byte(`"msg":"account deleted`)) {
			continue
		}
		assert.Equal(t, 1, bytes.Count(line, []byte(`"user_id":`)), string(line))
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		records[rec["msg"].(string)] = rec
	}

	byStaff := records["account deleted by staff"]
	require.NotNil(t, byStaff)
	assert.EqualValues(t, staff.ID, byStaff["user_id"])
	assert.EqualValues(t, bob.user.ID, byStaff["target_user_id"])

	self := records["account deleted"]
	require.NotNil(t, self)
	assert.EqualValues(t, alice.user.ID, self["user_id"])
}

func TestSwaggerDocCoversEveryRoute(t *testing.T) {
	env := newTestEnv(t)

	raw, err := swag.ReadDoc()
	require.NoError(t, err)
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	param := regexp.MustCompile(`:(\w+)`)
	documented := map[string]bool{
		http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
		http.MethodPatch: true, http.MethodDelete: true,
	}
	checked := 0
	for _, r := range env.app.GetRoutes(true) {
		if !documented[r.Method] || strings.HasPrefix(r.Path, "/api/swagger") {
			continue
		}
		if !strings.HasPrefix(r.Path, "/api/") && !strings.HasPrefix(r.Path, "/health/") {
			continue
		}
		path := strings.TrimSuffix(strings.TrimPrefix(r.Path, "/api"), "/")
		path = param.ReplaceAllString(path, "{$1}")
		_, ok := doc.Paths[path][strings.ToLower(r.Method)]
		assert.True(t, ok, "%s %s missing from swagger doc", r.Method, path)
		checked++
	}
	assert.Greater(t, checked, 40)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)
	alice := env.member(t, "alice@example.com", "alice")

	resp, _ := env.do(t, http.MethodGet, "/api/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/ws?token="+alice.token, "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewNotFoundError("Post", 1), fiber.StatusNotFound},
		{models.NewValidationError("bad"), fiber.StatusBadRequest},
		{models.NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{models.NewForbiddenError("no"), fiber.StatusForbidden},
		{models.NewConflictError("dup"), fiber.StatusConflict},
		{fmt.Errorf("wrapped: %w", models.NewConflictError("dup")), fiber.StatusConflict},
		{models.NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
		{errors.New("plain"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapServiceError(tt.err), tt.err.Error())
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  repository.Page
	}{
		{"", repository.Page{Limit: repository.DefaultPageSize}},
		{"?limit=5&offset=10", repository.Page{Limit: 5, Offset: 10}},
		{"?limit=1000", repository.Page{Limit: repository.MaxPageSize}},
		{"?limit=-3&offset=-1", repository.Page{Limit: repository.DefaultPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			app := fiber.New()
			var got repository.Page
			app.Get("/", func(c *fiber.Ctx) error {
				got = parsePagination(c)
				return c.SendStatus(fiber.StatusOK)
			})
			_, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return respondError(c, errors.New("pq: connection refused"))
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, decodeBody(resp, &body))
	assert.Equal(t, models.CodeInternal, body.Code)
	assert.Empty(t, body.Details)
	assert.NotContains(t, body.Error, "connection refused")
}
