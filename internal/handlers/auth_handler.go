package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/beehivetracker/server/internal/middleware"
	"github.com/beehivetracker/server/internal/models"
	"github.com/beehivetracker/server/internal/services"
)

// AuthHandler обрабатывает HTTP-запросы аутентификации.
type AuthHandler struct {
	service services.AuthService
}

// NewAuthHandler создает новый экземпляр AuthHandler.
func NewAuthHandler(service services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// lockedResponse - тело ответа при активной блокировке учетной записи.
type lockedResponse struct {
	Error            string `json:"error"`
	RetryAfterSecond int64  `json:"retry_after_seconds"`
}

// Login обрабатывает вход: POST /login.
// Токен возвращается в теле ответа и дублируется в cookie, чтобы браузер
// мог запрашивать фотографии через <img> без заголовка Authorization.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Невалидное тело запроса")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Имя пользователя и пароль обязательны")
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var locked *services.AccountLockedError
		switch {
		case errors.As(err, &locked):
			w.Header().Set("Retry-After", strconv.FormatInt(locked.RemainingSeconds, 10))
			writeJSON(w, http.StatusLocked, lockedResponse{
				Error:            locked.Error(),
				RetryAfterSecond: locked.RemainingSeconds,
			})
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, err.Error())
		default:
			log.Printf("[AuthHandler] Ошибка входа: %v", err)
			writeError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token})
}

// Logout завершает сессию: GET /logout. Сервер состояния сессии не хранит,
// достаточно сбросить cookie с токеном.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
