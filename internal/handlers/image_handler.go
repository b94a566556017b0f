package handlers

import (
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/beehivetracker/server/internal/storage"
)

// dayDirPattern - каталог дня в формате YYYYMMDD.
var dayDirPattern = regexp.MustCompile(`^\d{8}$`)

// ImageHandler отдает сохраненные фотографии осмотров.
type ImageHandler struct {
	images *storage.ImageManager
}

// NewImageHandler создает новый экземпляр ImageHandler.
func NewImageHandler(images *storage.ImageManager) *ImageHandler {
	return &ImageHandler{images: images}
}

// Serve отдает фотографию: GET /uploads/inspections/{date}/{filename}.
// Файл отдается только если он числится за осмотром указанной даты в
// хранилище текущей учетной записи: чужие и посторонние файлы невидимы.
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	store, ok := requestStore(w, r)
	if !ok {
		return
	}

	dateDir := chi.URLParam(r, "date")
	filename := chi.URLParam(r, "filename")
	if !dayDirPattern.MatchString(dateDir) || filename == "" {
		writeError(w, http.StatusNotFound, "Файл не найден")
		return
	}

	known, err := store.HasImageFilename(r.Context(), dateDir, filename)
	if err != nil {
		log.Printf("[ImageHandler] Ошибка проверки файла '%s/%s': %v", dateDir, filename, err)
		writeError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера")
		return
	}
	if !known {
		writeError(w, http.StatusNotFound, "Файл не найден")
		return
	}

	object, size, err := h.images.Open(r.Context(), dateDir, filename)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "Файл не найден")
			return
		}
		log.Printf("[ImageHandler] Ошибка открытия файла '%s/%s': %v", dateDir, filename, err)
		writeError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера")
		return
	}
	defer object.Close()

	if contentType := mime.TypeByExtension(filepath.Ext(filename)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}

	if _, err = io.Copy(w, object); err != nil {
		log.Printf("[ImageHandler] Ошибка отдачи файла '%s/%s': %v", dateDir, filename, err)
	}
}
