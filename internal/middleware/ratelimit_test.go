package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beehivetracker/server/internal/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoginRateLimiter(t *testing.T) {
	t.Run("Лимит на один адрес", func(t *testing.T) {
		limiter := middleware.NewLoginRateLimiter(10, time.Minute)
		handler := limiter.Limit(okHandler())

		for i := 0; i < 10; i++ {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = "10.0.0.1:12345"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, "запрос %d должен пройти", i+1)
		}

		// Одиннадцатый запрос с того же адреса отклоняется
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("Разные адреса не мешают друг другу", func(t *testing.T) {
		limiter := middleware.NewLoginRateLimiter(1, time.Minute)
		handler := limiter.Limit(okHandler())

		first := httptest.NewRequest(http.MethodPost, "/login", nil)
		first.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, first)
		require.Equal(t, http.StatusOK, rec.Code)

		// Лимит первого адреса исчерпан
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, first)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		// Второй адрес проходит
		second := httptest.NewRequest(http.MethodPost, "/login", nil)
		second.RemoteAddr = "10.0.0.2:54321"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, second)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
