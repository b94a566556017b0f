package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxFileSize - максимальный размер одной фотографии (ровно 7 MiB допустимо).
const MaxFileSize = 7 * 1024 * 1024

// maxStemLength - максимальная длина исходной части имени файла.
const maxStemLength = 20

// allowedExtensions - допустимые расширения фотографий.
var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

// stemSanitizer вырезает из исходного имени все, кроме безопасных символов.
var stemSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Кастомные ошибки валидации загрузок.
var (
	ErrUnsupportedType = fmt.Errorf("недопустимый тип файла")
	ErrTooLarge        = fmt.Errorf("файл превышает %d МиБ", MaxFileSize/1024/1024)
)

// ImageManager валидирует и размещает фотографии осмотров.
// Сами записи в БД ведет вызывающий слой (сервис осмотров).
type ImageManager struct {
	files FileStorage
	now   func() time.Time // Подменяется в тестах
}

// NewImageManager создает менеджер фотографий поверх заданного файлового хранилища.
func NewImageManager(files FileStorage) *ImageManager {
	return &ImageManager{files: files, now: time.Now}
}

// SaveAll сохраняет пачку загруженных файлов в каталог дня осмотра (dateDir = YYYYMMDD).
// Файлы сохраняются по одному: при ошибке на K-м файле уже сохраненные остаются
// на месте, возвращаются их имена вместе с ошибкой (частичный успех).
func (m *ImageManager) SaveAll(ctx context.Context, files []*multipart.FileHeader, dateDir string) ([]string, error) {
	saved := []string{}

	for _, fh := range files {
		// Пустые элементы формы пропускаем
		if fh == nil || fh.Filename == "" {
			continue
		}

		ext, ok := extension(fh.Filename)
		if !ok {
			return saved, fmt.Errorf("%w: '%s' (допустимы: jpg, jpeg, png, gif, webp)", ErrUnsupportedType, fh.Filename)
		}
		if fh.Size > MaxFileSize {
			return saved, fmt.Errorf("%w: '%s' (%.1f МиБ)", ErrTooLarge, fh.Filename, float64(fh.Size)/1024/1024)
		}

		filename := m.buildFilename(fh.Filename, ext)

		src, err := fh.Open()
		if err != nil {
			return saved, fmt.Errorf("ошибка открытия загруженного файла '%s': %w", fh.Filename, err)
		}

		contentType := mime.TypeByExtension("." + ext)
		err = m.files.Save(ctx, dateDir, filename, src, fh.Size, contentType)
		closeErr := src.Close()
		if closeErr != nil {
			log.Printf("[ImageManager] Ошибка закрытия загруженного файла '%s': %v", fh.Filename, closeErr)
		}
		if err != nil {
			return saved, fmt.Errorf("ошибка сохранения '%s': %w", fh.Filename, err)
		}

		saved = append(saved, filename)
	}

	return saved, nil
}

// Open открывает сохраненную фотографию для отдачи клиенту.
func (m *ImageManager) Open(ctx context.Context, dateDir, filename string) (io.ReadCloser, int64, error) {
	return m.files.Open(ctx, dateDir, filename)
}

// Remove удаляет файл фотографии.
func (m *ImageManager) Remove(ctx context.Context, dateDir, filename string) error {
	return m.files.Remove(ctx, dateDir, filename)
}

// Relocate переносит файл фотографии в каталог другого дня (смена даты осмотра).
// Совпадающие каталоги делают перенос no-op; отсутствие исходного файла
// возвращается как ErrObjectNotFound.
func (m *ImageManager) Relocate(ctx context.Context, fromDir, toDir, filename string) error {
	if fromDir == toDir {
		return nil
	}

	src, size, err := m.files.Open(ctx, fromDir, filename)
	if err != nil {
		return err
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	err = m.files.Save(ctx, toDir, filename, src, size, contentType)
	closeErr := src.Close()
	if closeErr != nil {
		log.Printf("[ImageManager] Ошибка закрытия файла '%s' при переносе: %v", filename, closeErr)
	}
	if err != nil {
		return fmt.Errorf("ошибка переноса '%s' в каталог '%s': %w", filename, toDir, err)
	}

	if err = m.files.Remove(ctx, fromDir, filename); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("ошибка удаления '%s' из каталога '%s': %w", filename, fromDir, err)
	}

	log.Printf("[ImageManager] Файл '%s' перенесен из '%s' в '%s'", filename, fromDir, toDir)
	return nil
}

// RemoveDayDirIfEmpty пытается убрать опустевший каталог дня; ошибки только логируются.
func (m *ImageManager) RemoveDayDirIfEmpty(ctx context.Context, dateDir string) {
	if err := m.files.RemoveDirIfEmpty(ctx, dateDir); err != nil {
		log.Printf("[ImageManager] Не удалось убрать каталог дня '%s': %v", dateDir, err)
	}
}

// buildFilename генерирует имя вида 20251115_153045_inspection_photo.jpg.
func (m *ImageManager) buildFilename(original, ext string) string {
	timestamp := m.now().Format("20060102_150405")
	stem := sanitizeStem(original)
	return fmt.Sprintf("%s_%s.%s", timestamp, stem, ext)
}

// extension возвращает расширение файла в нижнем регистре и признак допустимости.
func extension(filename string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return ext, allowedExtensions[ext]
}

// sanitizeStem очищает и укорачивает исходную часть имени файла.
// Для имен без единого безопасного символа подставляется случайная основа.
func sanitizeStem(original string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	stem := strings.Trim(stemSanitizer.ReplaceAllString(base, "_"), "_")
	if len(stem) > maxStemLength {
		stem = stem[:maxStemLength]
	}
	if stem == "" {
		stem = uuid.NewString()[:8]
	}
	return stem
}
