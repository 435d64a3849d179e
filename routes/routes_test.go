package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teteocan/aurora-admin/app"
	"github.com/teteocan/aurora-admin/config"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "development",
		Storage:     config.StorageConfig{Driver: config.StorageDriverMemory},
		Identity: config.IdentityConfig{
			Driver:        config.IdentityDriverLocal,
			LocalSecret:   "routes-test-secret",
			LocalTokenTTL: time.Hour,
			Timeout:       time.Second,
		},
		RateLimit:     config.RateLimitConfig{Enabled: false},
		Audit:         config.AuditConfig{BufferSize: 16, WorkerCount: 1},
		CORS:          config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Observability: config.ObservabilityConfig{LogLevel: "debug", MetricsEnabled: true},
	}
}

func newTestDeps(t *testing.T, cfg *config.Config) *app.Dependencies {
	t.Helper()
	deps, err := app.NewDependencies(context.Background(), cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	_, err = deps.LocalIdentity.AddUser("admin-1", "admin@aurora.test", "admin-pw", map[string]interface{}{"admin": true})
	require.NoError(t, err)
	_, err = deps.LocalIdentity.AddUser("psy-1", "ana@aurora.test", "psy-pw", nil)
	require.NoError(t, err)
	return deps
}

func serve(h http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.RemoteAddr = "192.0.2.10:4000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes_Health(t *testing.T) {
	h := SetupRoutes(newTestDeps(t, testConfig()))

	w := serve(h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(h, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestSetupRoutes_NotFound(t *testing.T) {
	h := SetupRoutes(newTestDeps(t, testConfig()))

	w := serve(h, http.MethodGet, "/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "not_found", resp["error"])
}

func TestSetupRoutes_DevTokenAndLogin(t *testing.T) {
	h := SetupRoutes(newTestDeps(t, testConfig()))

	body, _ := json.Marshal(map[string]string{"email": "admin@aurora.test", "password": "admin-pw"})
	w := serve(h, http.MethodPost, "/api/dev/token", "", body)
	require.Equal(t, http.StatusOK, w.Code)

	var tokenResp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tokenResp))
	require.NotEmpty(t, tokenResp.Data.Token)

	w = serve(h, http.MethodPost, "/api/login/verify", tokenResp.Data.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(h, http.MethodGet, "/api/admin/records", tokenResp.Data.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutes_DevTokenOnlyInDevelopment(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "staging"
	h := SetupRoutes(newTestDeps(t, cfg))

	body, _ := json.Marshal(map[string]string{"email": "admin@aurora.test", "password": "admin-pw"})
	w := serve(h, http.MethodPost, "/api/dev/token", "", body)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRoutes_BankInfoSelfOrAdmin(t *testing.T) {
	deps := newTestDeps(t, testConfig())
	h := SetupRoutes(deps)

	owner, err := deps.LocalIdentity.IssueToken("psy-1")
	require.NoError(t, err)
	adminTok, err := deps.LocalIdentity.IssueToken("admin-1")
	require.NoError(t, err)

	doc, _ := json.Marshal(map[string]interface{}{
		"account_holder_name": "Ana Ruiz",
		"bank_name":           "BBVA",
		"account_type":        "savings",
		"clabe":               "012180001234567891",
	})
	w := serve(h, http.MethodPut, "/api/bank-info/psy-1", owner, doc)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(h, http.MethodGet, "/api/bank-info/psy-1", adminTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(h, http.MethodGet, "/api/bank-info/admin-1", owner, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(h, http.MethodGet, "/api/admin/bank-info-for-payment", owner, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSetupRoutes_RateLimitsLogin(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	h := SetupRoutes(newTestDeps(t, cfg))

	w := serve(h, http.MethodPost, "/api/login/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(h, http.MethodPost, "/api/login/verify", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
