package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"habitloop/internal/config"
	"habitloop/internal/llm"

	"github.com/gin-gonic/gin"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8080
	cfg.Server.Subpath = "/habitloop"
	cfg.Server.JWTSecret = "test-secret"
	return cfg
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	manager := llm.NewManager(llm.DefaultConfig(), llm.NewCircuitBreaker(3, time.Minute))
	t.Cleanup(manager.Stop)
	return SetupRouter(testConfig(), nil, testPipeline(&stubGenerator{response: validResponse}), manager)
}

func TestRouter_Health(t *testing.T) {
	r := testRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/habitloop/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRouter_ConfigOmitsSecrets(t *testing.T) {
	r := testRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/habitloop/config", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "test-secret") {
		t.Errorf("config response leaked the JWT secret: %s", w.Body.String())
	}
}

func TestRouter_GenerateRequiresAuth(t *testing.T) {
	r := testRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/habitloop/insights/generate", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRouter_MetricsRequiresAuth(t *testing.T) {
	r := testRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/habitloop/llm/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
