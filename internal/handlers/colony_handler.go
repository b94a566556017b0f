package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/beehivetracker/server/internal/models"
	"github.com/beehivetracker/server/internal/services"
)

// ColonyHandler обрабатывает HTTP-запросы по пчелиным семьям.
type ColonyHandler struct {
	service services.ColonyService
}

// NewColonyHandler создает новый экземпляр ColonyHandler.
func NewColonyHandler(service services.ColonyService) *ColonyHandler {
	return &ColonyHandler{service: service}
}

// colonyDetailResponse - семья вместе с историей ее осмотров.
type colonyDetailResponse struct {
	Colony      *models.Colony      `json:"colony"`
	Inspections []models.Inspection `json:"inspections"`
}

// List возвращает все семьи: GET / и GET /voelker.
func (h *ColonyHandler) List(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	colonies, err := h.service.List(r.Context(), store)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, colonies)
}

// Create создает новую семью: POST /neues-volk.
func (h *ColonyHandler) Create(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	var in models.ColonyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Невалидное тело запроса")
		return
	}

	colony, err := h.service.Create(r.Context(), store, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, colony)
}

// Detail возвращает семью с осмотрами: GET /volk/{id}.
func (h *ColonyHandler) Detail(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Невалидный ID семьи")
		return
	}

	colony, inspections, err := h.service.Get(r.Context(), store, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, colonyDetailResponse{Colony: colony, Inspections: inspections})
}

// Update обновляет семью: POST /volk/{id}/bearbeiten.
func (h *ColonyHandler) Update(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Невалидный ID семьи")
		return
	}

	var in models.ColonyInput
	if err = json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Невалидное тело запроса")
		return
	}

	if err = h.service.Update(r.Context(), store, id, in); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus меняет статус семьи: POST /volk/{id}/status.
func (h *ColonyHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Невалидный ID семьи")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Невалидное тело запроса")
		return
	}

	if err = h.service.UpdateStatus(r.Context(), store, id, req.Status); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete удаляет семью со всеми осмотрами: POST /volk/{id}/loeschen.
// В ответе - структурированный итог очистки файлов фотографий.
func (h *ColonyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Невалидный ID семьи")
		return
	}

	cleanup, err := h.service.Delete(r.Context(), store, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cleanup)
}
