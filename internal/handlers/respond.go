package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/beehivetracker/server/internal/middleware"
	"github.com/beehivetracker/server/internal/repository"
	"github.com/beehivetracker/server/internal/services"
)

// writeJSON сериализует ответ в JSON с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handlers] Ошибка кодирования ответа: %v", err)
	}
}

// errorResponse - единый формат ошибок для клиента.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError отправляет ошибку в JSON.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError транслирует ошибки сервисов предметной области в HTTP-статусы.
// Неопознанные ошибки не раскрываются клиенту.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrColonyNotFound),
		errors.Is(err, services.ErrInspectionNotFound),
		errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("[Handlers] Внутренняя ошибка: %v", err)
		writeError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера")
	}
}

// requestStore достает привязанное к запросу хранилище учетной записи.
// Отсутствие хранилища означает неправильно собранную цепочку middleware.
func requestStore(w http.ResponseWriter, r *http.Request) (*repository.Store, bool) {
	store, ok := middleware.GetStoreFromContext(r.Context())
	if !ok {
		log.Printf("[Handlers] Хранилище учетной записи отсутствует в контексте запроса")
		writeError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера")
		return nil, false
	}
	return store, true
}

// idParam разбирает числовой параметр маршрута.
func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
