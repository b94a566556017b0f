package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/beehivetracker/server/internal/models"
	"github.com/beehivetracker/server/internal/services"
)

// maxUploadMemory - лимит памяти при разборе multipart-форм, остальное уходит
// во временные файлы.
const maxUploadMemory = 8 << 20

// imagesFormField - имя поля формы с фотографиями.
const imagesFormField = "images"

// InspectionHandler обрабатывает HTTP-запросы по осмотрам.
type InspectionHandler struct {
	service services.InspectionService
}

// NewInspectionHandler создает новый экземпляр InspectionHandler.
func NewInspectionHandler(service services.InspectionService) *InspectionHandler {
	return &InspectionHandler{service: service}
}

// ListGrouped возвращает осмотры по календарным дням: GET /inspektionen.
func (h *InspectionHandler) ListGrouped(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	groups, err := h.service.ListGrouped(r.Context(), store)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, groups)
}

// Detail возвращает осмотр с фотографиями: GET /inspektion/{id}.
func (h *InspectionHandler) Detail(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Невалидный ID осмотра")
		return
	}

	inspection, err := h.service.Get(r.Context(), store, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inspection)
}

// Create создает осмотр: POST /neue-inspektion (multipart-форма с фотографиями).
func (h *InspectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	in, files, err := parseInspectionForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Create(r.Context(), store, in, files)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Update обновляет осмотр: POST /inspektion/{id}/bearbeiten.
// Новые фотографии добавляются к уже существующим.
func (h *InspectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Невалидный ID осмотра")
		return
	}

	in, files, err := parseInspectionForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Update(r.Context(), store, id, in, files)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Delete удаляет осмотр: POST /inspektion/{id}/loeschen.
func (h *InspectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Невалидный ID осмотра")
		return
	}

	cleanup, err := h.service.Delete(r.Context(), store, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cleanup)
}

// batchDeleteRequest - тело запроса на пакетное удаление осмотров.
type batchDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// batchDeleteResponse - итог пакетного удаления.
type batchDeleteResponse struct {
	Deleted int                     `json:"deleted"`
	Cleanup *services.CleanupResult `json:"cleanup"`
}

// BatchDelete удаляет осмотры списком: POST /inspektionen/loeschen.
// Отсутствующие ID пропускаются, запрос не падает целиком.
func (h *InspectionHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	var req batchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Невалидное тело запроса")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "Не выбрано ни одного осмотра")
		return
	}

	deleted, cleanup := h.service.BatchDelete(r.Context(), store, req.IDs)
	writeJSON(w, http.StatusOK, batchDeleteResponse{Deleted: deleted, Cleanup: cleanup})
}

// batchCreateRequest - тело запроса на пакетное создание одинакового осмотра.
type batchCreateRequest struct {
	ColonyIDs []int64 `json:"colony_ids"`
	models.InspectionInput
}

// batchCreateResponse - итог пакетного создания.
type batchCreateResponse struct {
	Created int `json:"created"`
}

// BatchCreate создает одинаковый осмотр для нескольких семей: POST /batch-inspektion.
func (h *InspectionHandler) BatchCreate(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	var req batchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Невалидное тело запроса")
		return
	}

	created, err := h.service.BatchCreate(r.Context(), store, req.ColonyIDs, req.InspectionInput)
	if err != nil {
		// Уже созданные строки остаются, сообщаем их количество вместе с ошибкой
		writeJSON(w, domainErrorStatus(err), struct {
			Error   string `json:"error"`
			Created int    `json:"created"`
		}{Error: err.Error(), Created: created})
		return
	}

	writeJSON(w, http.StatusCreated, batchCreateResponse{Created: created})
}

// domainErrorStatus возвращает HTTP-статус для ошибки предметной области.
func domainErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrColonyNotFound), errors.Is(err, services.ErrInspectionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// parseInspectionForm разбирает multipart-форму осмотра в типизированную
// структуру. Незаполненные опциональные поля остаются nil.
func parseInspectionForm(r *http.Request) (models.InspectionInput, []*multipart.FileHeader, error) {
	var in models.InspectionInput

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		// Форма без файлов может прийти и как urlencoded
		if !errors.Is(err, http.ErrNotMultipart) {
			return in, nil, errors.New("невалидная форма осмотра")
		}
		if err = r.ParseForm(); err != nil {
			return in, nil, errors.New("невалидная форма осмотра")
		}
	}

	colonyID, err := strconv.ParseInt(r.FormValue("colony_id"), 10, 64)
	if err != nil {
		return in, nil, errors.New("не указана семья")
	}

	in.ColonyID = colonyID
	in.Date = r.FormValue("date")
	in.VarroaCheck = r.FormValue("varroa_check")
	in.Notes = r.FormValue("notes")
	in.QueenSeen = formBool(r, "queen_seen")
	in.DrohnenbrutGeschnitten = formBool(r, "drohnenbrut_geschnitten")
	in.HoneyYield = formFloat(r, "honey_yield")
	in.Mittelwaende = formInt(r, "mittelwaende")
	in.Brutwaben = formInt(r, "brutwaben")
	in.Futterwaben = formInt(r, "futterwaben")
	in.Volksstaerke = formInt(r, "volksstaerke")
	in.Sanftmut = formInt(r, "sanftmut")
	in.Vitalitaet = formInt(r, "vitalitaet")
	in.Brut = formInt(r, "brut")

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File[imagesFormField]
	}

	return in, files, nil
}

// formInt разбирает опциональное целое поле формы; пустое или нечисловое
// значение трактуется как незаполненное.
func formInt(r *http.Request, name string) *int {
	value, err := strconv.Atoi(r.FormValue(name))
	if err != nil {
		return nil
	}
	return &value
}

// formFloat разбирает опциональное числовое поле формы.
func formFloat(r *http.Request, name string) *float64 {
	value, err := strconv.ParseFloat(r.FormValue(name), 64)
	if err != nil {
		return nil
	}
	return &value
}

// formBool трактует как истину значения чекбоксов: "1", "true", "on".
func formBool(r *http.Request, name string) bool {
	switch r.FormValue(name) {
	case "1", "true", "on":
		return true
	}
	return false
}
