package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoppulse/internal/config"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{Port: 8080}
}

func TestNewRouter_Health(t *testing.T) {
	router := NewRouter(&fakeService{result: fakeResult()}, testServerConfig(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNewRouter_Metrics(t *testing.T) {
	router := NewRouter(&fakeService{result: fakeResult()}, testServerConfig(), nil)

	// Hit an API route first so the counters carry a sample
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/rfm", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shoppulse_http_requests_total")
}

func TestNewRouter_MountsAPI(t *testing.T) {
	router := NewRouter(&fakeService{result: fakeResult()}, testServerConfig(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestNewRouter_RateLimitDisabled(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimitRPS = 0

	router := NewRouter(&fakeService{result: fakeResult()}, cfg, nil)
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
