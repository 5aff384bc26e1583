package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-gateway/app"
	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/repositories/postgres"
	"github.com/upb/llm-gateway/routes"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	os.Setenv("ENVIRONMENT", "test")
	os.Setenv("LOG_LEVEL", "error")

	code := m.Run()

	os.Exit(code)
}

func TestInitLogger(t *testing.T) {
	t.Run("default json logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "info")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("development console logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_FORMAT", "console")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "invalid")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("defaults when not set", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("LOG_FORMAT", "")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})
}

// newTestServer serves the full router over a sqlmock pool with catalog seeding off
func newTestServer(t *testing.T) (*httptest.Server, sqlmock.Sqlmock) {
	t.Helper()
	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	deps, err := app.NewDependenciesFromDB(context.Background(), cfg, postgres.WrapDB(sqlDB, logger), logger)
	require.NoError(t, err)

	ts := httptest.NewServer(routes.SetupRoutes(deps))
	t.Cleanup(ts.Close)
	return ts, mock
}

func TestHealthEndpoints(t *testing.T) {
	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	// No database: liveness still answers
	deps := &app.Dependencies{
		Config: cfg,
		Logger: logger,
	}

	ts := httptest.NewServer(routes.SetupRoutes(deps))
	defer ts.Close()

	t.Run("health check returns ok", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("not ready without infrastructure", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "not_ready", body["status"])
	})
}

func TestReadinessCheck(t *testing.T) {
	ts, mock := newTestServer(t)
	mock.ExpectPing()

	resp, err := http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ready", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "configured", checks["providers"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIEndpoints(t *testing.T) {
	ts, mock := newTestServer(t)

	testCases := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{"chat without message", "POST", "/api/v1/chat", `{}`, http.StatusBadRequest},
		{"chat with malformed body", "POST", "/api/v1/chat", `{"message":`, http.StatusBadRequest},
		{"validate key for unknown vendor", "POST", "/api/v1/providers/mistral/validate-key", `{"apiKey":"x"}`, http.StatusBadRequest},
		{"models with bad provider id", "GET", "/api/v1/providers/not-a-uuid/models", "", http.StatusBadRequest},
		{"store key with bad provider id", "POST", "/api/v1/providers/not-a-uuid/api-keys", `{"apiKey":"x"}`, http.StatusBadRequest},
		{"usage with bad window", "GET", "/api/v1/providers/6f1c2b1e-4a52-4e71-9e0d-3f7e0f6f8b10/usage?days=0", "", http.StatusBadRequest},
		{"messages with bad session id", "GET", "/api/v1/sessions/123/messages", "", http.StatusBadRequest},
		{"delete with bad session id", "DELETE", "/api/v1/sessions/123", "", http.StatusBadRequest},
		{"not found", "GET", "/api/v1/nonexistent", "", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "endpoint: %s %s", tc.method, tc.path)
		})
	}

	// None of these reach the store
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProvidersEndpoint(t *testing.T) {
	ts, mock := newTestServer(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM providers ORDER BY priority DESC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "display_name", "base_url", "priority", "is_active", "models", "created_at", "updated_at"}).
			AddRow("6f1c2b1e-4a52-4e71-9e0d-3f7e0f6f8b10", "openai", "OpenAI", "", 100, true, []byte(`[{"id":"gpt-4o","name":"GPT-4o"}]`), now, now))

	resp, err := http.Get(ts.URL + "/api/v1/providers")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			Supported  []string `json:"supported"`
			Configured []struct {
				Name string `json:"name"`
			} `json:"configured"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	body := envelope.Data
	assert.Equal(t, []string{"anthropic", "google", "grok", "openai", "openrouter"}, body.Supported)
	require.Len(t, body.Configured, 1)
	assert.Equal(t, "openai", body.Configured[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCORSMiddleware(t *testing.T) {
	ts, _ := newTestServer(t)

	t.Run("OPTIONS preflight request", func(t *testing.T) {
		req, err := http.NewRequest("OPTIONS", ts.URL+"/api/v1/chat", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Owner-ID")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestIntegrationWithRealDependencies(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		t.Skipf("skipping integration test: %v", err)
		return
	}
	defer deps.Close(ctx)

	ts := httptest.NewServer(routes.SetupRoutes(deps))
	defer ts.Close()

	t.Run("readiness check with real infrastructure", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

		assert.Equal(t, "ready", body["status"])
		checks := body["checks"].(map[string]interface{})
		assert.Equal(t, "healthy", checks["database"])
	})

	t.Run("catalog providers are listed", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/providers")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

// Test helpers

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigins:  []string{"http://localhost:5173"},
		},
		Database: config.DatabaseConfig{
			Host:            getEnvOrDefault("DB_HOST", "localhost"),
			Port:            5432,
			User:            getEnvOrDefault("DB_USER", "gateway"),
			Password:        getEnvOrDefault("DB_PASSWORD", "gateway"),
			Database:        getEnvOrDefault("DB_NAME", "gateway_test"),
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Security: config.SecurityConfig{
			CredentialPassphrase: "test-passphrase",
		},
		Gateway: config.GatewayConfig{
			ChatTimeout:  10 * time.Second,
			HistoryLimit: 20,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "error",
			LogFormat: "json",
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
