package handlers

import (
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
)

// HealthHandler отвечает на проверки живости сервера.
type HealthHandler struct {
	accountsDB *sqlx.DB
}

// NewHealthHandler создает новый экземпляр HealthHandler.
func NewHealthHandler(accountsDB *sqlx.DB) *HealthHandler {
	return &HealthHandler{accountsDB: accountsDB}
}

// healthResponse - тело ответа проверки живости.
type healthResponse struct {
	Status string `json:"status"`
}

// Check проверяет доступность хранилища учетных записей: GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.accountsDB.PingContext(r.Context()); err != nil {
		log.Printf("[HealthHandler] Хранилище учетных записей недоступно: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy"})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
