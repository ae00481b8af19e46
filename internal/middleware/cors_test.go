package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newCORSRouter(config *CORSConfig) *gin.Engine {
	router := gin.New()
	if config == nil {
		router.Use(CORS())
	} else {
		router.Use(CORSWithConfig(config))
	}
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCORS_SetsHeaders(t *testing.T) {
	router := newCORSRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Expected origin echoed with credentials, got %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Expected credentials header")
	}
	if w.Header().Get("Access-Control-Max-Age") != "43200" {
		t.Errorf("Expected 12h max age in seconds, got %q", w.Header().Get("Access-Control-Max-Age"))
	}
}

func TestCORS_NoOriginSkips(t *testing.T) {
	router := newCORSRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("Expected no CORS headers without an Origin header")
	}
}

func TestCORS_Preflight(t *testing.T) {
	router := newCORSRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", w.Code)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	router := newCORSRouter(&CORSConfig{
		AllowOrigins: []string{"https://allowed.example"},
		AllowMethods: []string{"GET"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	router.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("Expected no allow-origin header for disallowed origin")
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected request to still reach the handler, got %d", w.Code)
	}
}
