package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"proposta/internal/config"
	"proposta/internal/observability"
	"proposta/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret-test-secret-test-secret"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

func testConfig(flags string) *config.Config {
	return &config.Config{
		Port:                   "0",
		Env:                    "test",
		AppURL:                 "https://app.example.com",
		SignatureBasePath:      "/assinatura",
		FeatureFlags:           flags,
		JWTSecret:              testJWTSecret,
		JWTIssuer:              "proposta-api",
		JWTAudience:            "proposta-app",
		SignatureImageMaxKB:    512,
		SignatureImageMaxWidth: 600,
		MailOutboxKey:          "mail:outbox",
		PublicSignRateLimit:    30,
	}
}

func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()
	observability.EnableRepoLogging = false

	db := testutil.NewTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	srv, err := NewServerWithDeps(testConfig(flags), db, rdb)
	require.NoError(t, err)

	return &testEnv{server: srv, app: srv.NewApp(), db: db, mr: mr, rdb: rdb}
}

func signToken(t *testing.T, userID uint, mutate func(jwt.MapClaims)) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": "proposta-api",
		"aud": "proposta-app",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

// do sends a request as userID (0 for anonymous) and decodes a JSON body into out when given.
func (e *testEnv) do(t *testing.T, method, path string, userID uint, body any, out any) *http.Response {
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
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+signToken(t, userID, nil))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	i := strings.LastIndex(link, "/")
	require.GreaterOrEqual(t, i, 0)
	return link[i+1:]
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	var got Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		got = parsePagination(c, 20)
		return nil
	})

	cases := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Limit: 20}},
		{"?limit=5&offset=10", Pagination{Limit: 5, Offset: 10}},
		{"?limit=1000", Pagination{Limit: maxPaginationLimit}},
		{"?limit=-1&offset=-4", Pagination{Limit: 20}},
	}
	for _, tc := range cases {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tc.query, nil))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.query)
	}
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "signature request ID", humanizeParam("signatureRequestId"))
	assert.Equal(t, "token", humanizeParam("token"))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", 0, nil, nil).StatusCode)

	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	resp := env.do(t, http.MethodGet, "/health/ready", 0, nil, &ready)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["redis"])
}

func TestGetPlans(t *testing.T) {
	env := newTestEnv(t, "")
	var catalog []map[string]any
	resp := env.do(t, http.MethodGet, "/api/plans", 0, nil, &catalog)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, catalog, 3)
}
