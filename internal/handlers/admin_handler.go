package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/beehivetracker/server/internal/models"
	"github.com/beehivetracker/server/internal/services"
)

// AdminHandler обрабатывает административные запросы по учетным записям.
type AdminHandler struct {
	service services.AdminService
}

// NewAdminHandler создает новый экземпляр AdminHandler.
func NewAdminHandler(service services.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListUsers возвращает все учетные записи: GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// CreateUser создает учетную запись: POST /admin/users.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Невалидное тело запроса")
		return
	}

	user, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// DeleteUser удаляет учетную запись: POST /admin/users/{id}/loeschen.
// Хранилище учетной записи при этом архивируется, а не удаляется.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Невалидный ID учетной записи")
		return
	}

	if err = h.service.DeleteUser(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword устанавливает новый пароль: POST /admin/users/{id}/passwort.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Невалидный ID учетной записи")
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Невалидное тело запроса")
		return
	}

	if err = h.service.ResetPassword(r.Context(), id, req.Password); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnlockUser снимает блокировку входа: POST /admin/users/{id}/entsperren.
func (h *AdminHandler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Невалидный ID учетной записи")
		return
	}

	if err = h.service.UnlockUser(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
