package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"corebank/internal/config"
)

func TestRateLimiterMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cfg := config.RateLimitConfig{
		Enabled: true,
		RPS:     1,
		Burst:   2,
	}

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allows requests within the burst and blocks beyond it", func(t *testing.T) {
		handler := NewRateLimiterMiddleware(cfg, logger).Middleware(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:12345"

		for i := 0; i < cfg.Burst; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("request %d: expected status %d, got %d", i+1, http.StatusOK, rec.Code)
			}
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("expected a Retry-After header")
		}

		var response map[string]map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["error"]["message"] != "Rate limit exceeded" {
			t.Errorf("unexpected error message: %v", response)
		}
	})

	t.Run("limits clients independently", func(t *testing.T) {
		handler := NewRateLimiterMiddleware(cfg, logger).Middleware(okHandler)

		first := httptest.NewRequest(http.MethodGet, "/", nil)
		first.RemoteAddr = "10.0.0.1:1000"
		for i := 0; i <= cfg.Burst; i++ {
			handler.ServeHTTP(httptest.NewRecorder(), first)
		}

		second := httptest.NewRequest(http.MethodGet, "/", nil)
		second.RemoteAddr = "10.0.0.2:1000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, second)
		if rec.Code != http.StatusOK {
			t.Errorf("expected a fresh client to pass, got status %d", rec.Code)
		}
	})

	t.Run("passes through when disabled", func(t *testing.T) {
		disabled := config.RateLimitConfig{Enabled: false}
		handler := NewRateLimiterMiddleware(disabled, logger).Middleware(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for i := 0; i < 10; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
		}
	})

	t.Run("extractIP prefers forwarding headers", func(t *testing.T) {
		rl := NewRateLimiterMiddleware(cfg, logger)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1")
		if ip := rl.extractIP(req); ip != "192.168.1.1" {
			t.Errorf("expected first forwarded IP, got %s", ip)
		}

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")
		if ip := rl.extractIP(req); ip != "10.0.0.1" {
			t.Errorf("expected X-Real-IP, got %s", ip)
		}

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		if ip := rl.extractIP(req); ip != "127.0.0.1" {
			t.Errorf("expected remote addr host, got %s", ip)
		}
	})
}
