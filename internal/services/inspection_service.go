package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strings"
	"time"

	"github.com/beehivetracker/server/internal/models"
	"github.com/beehivetracker/server/internal/repository"
	"github.com/beehivetracker/server/internal/storage"
)

// InspectionService определяет операции над осмотрами.
type InspectionService interface {
	// Create сохраняет осмотр и затем его фотографии. Строка осмотра
	// фиксируется до обработки файлов: ошибка загрузки не откатывает осмотр,
	// а попадает в ImageWarning.
	Create(ctx context.Context, store *repository.Store, in models.InspectionInput,
		files []*multipart.FileHeader) (*InspectionSaveResult, error)
	Update(ctx context.Context, store *repository.Store, id int64, in models.InspectionInput,
		files []*multipart.FileHeader) (*InspectionSaveResult, error)
	Get(ctx context.Context, store *repository.Store, id int64) (*models.InspectionWithImages, error)
	// ListGrouped возвращает осмотры, сгруппированные по календарным дням
	// по убыванию даты.
	ListGrouped(ctx context.Context, store *repository.Store) ([]models.InspectionDayGroup, error)
	Delete(ctx context.Context, store *repository.Store, id int64) (*CleanupResult, error)
	// BatchCreate создает одинаковый осмотр для нескольких семей. Строки
	// фиксируются по одной: ошибка на K-й семье не откатывает предыдущие.
	BatchCreate(ctx context.Context, store *repository.Store, colonyIDs []int64,
		in models.InspectionInput) (int, error)
	// BatchDelete удаляет осмотры по списку ID, пропуская отсутствующие.
	BatchDelete(ctx context.Context, store *repository.Store, ids []int64) (int, *CleanupResult)
}

// InspectionSaveResult - итог сохранения осмотра вместе с фотографиями.
type InspectionSaveResult struct {
	Inspection  *models.Inspection `json:"inspection"`
	SavedImages []string           `json:"saved_images"`
	// ImageWarning заполняется, если осмотр записан, но часть фотографий
	// сохранить не удалось (нефатальная деградация).
	ImageWarning string `json:"image_warning,omitempty"`
}

// Убедимся, что inspectionService удовлетворяет интерфейсу InspectionService.
var _ InspectionService = (*inspectionService)(nil)

type inspectionService struct {
	images *storage.ImageManager
	now    func() time.Time // Подменяется в тестах
}

// NewInspectionService создает новый экземпляр сервиса осмотров.
func NewInspectionService(images *storage.ImageManager) InspectionService {
	return &inspectionService{images: images, now: time.Now}
}

// normalizeInput проверяет обязательные поля и подставляет сегодняшнюю дату.
// Оценки 1-5 и honey_yield сознательно не нормализуются.
func (s *inspectionService) normalizeInput(ctx context.Context, store *repository.Store, in *models.InspectionInput) error {
	if in.ColonyID == 0 {
		return fmt.Errorf("%w: не указана семья", ErrValidation)
	}
	if _, err := store.GetColonyByID(ctx, in.ColonyID); err != nil {
		if errors.Is(err, repository.ErrColonyNotFound) {
			return ErrColonyNotFound
		}
		return errors.New("внутренняя ошибка сервера при проверке семьи")
	}

	if in.Date == "" {
		in.Date = s.now().Format("2006-01-02")
		return nil
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return fmt.Errorf("%w: дата должна быть в формате YYYY-MM-DD", ErrValidation)
	}
	return nil
}

// Create сохраняет осмотр, затем - его фотографии.
func (s *inspectionService) Create(ctx context.Context, store *repository.Store, in models.InspectionInput,
	files []*multipart.FileHeader) (*InspectionSaveResult, error) {
	if err := s.normalizeInput(ctx, store, &in); err != nil {
		return nil, err
	}

	id, err := store.CreateInspection(ctx, in)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при создании осмотра")
	}

	result := s.attachImages(ctx, store, id, in.Date, files)

	inspection, err := store.GetInspectionByID(ctx, id)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при чтении созданного осмотра")
	}
	result.Inspection = inspection

	log.Printf("[InspectionService] Осмотр %d создан для семьи %d (%d фото)", id, in.ColonyID, len(result.SavedImages))
	return result, nil
}

// Update обновляет осмотр; новые фотографии добавляются к существующим.
// Смена даты переносит уже сохраненные файлы в каталог нового дня, чтобы
// путь к фотографии всегда выводился из текущей даты осмотра.
func (s *inspectionService) Update(ctx context.Context, store *repository.Store, id int64, in models.InspectionInput,
	files []*multipart.FileHeader) (*InspectionSaveResult, error) {
	existing, err := store.GetInspectionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrInspectionNotFound) {
			return nil, ErrInspectionNotFound
		}
		return nil, errors.New("внутренняя ошибка сервера при поиске осмотра")
	}
	if err = s.normalizeInput(ctx, store, &in); err != nil {
		return nil, err
	}

	if err = store.UpdateInspection(ctx, id, in); err != nil {
		return nil, errors.New("внутренняя ошибка сервера при обновлении осмотра")
	}

	relocateWarning := ""
	if existing.Date != in.Date {
		relocateWarning = s.relocateImages(ctx, store, id, existing.Date, in.Date)
	}

	result := s.attachImages(ctx, store, id, in.Date, files)
	if result.ImageWarning == "" {
		result.ImageWarning = relocateWarning
	}

	inspection, err := store.GetInspectionByID(ctx, id)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при чтении обновленного осмотра")
	}
	result.Inspection = inspection

	log.Printf("[InspectionService] Осмотр %d обновлен (%d новых фото)", id, len(result.SavedImages))
	return result, nil
}

// relocateImages переносит файлы осмотра в каталог нового дня после смены даты.
// Перенос best-effort: осмотр уже обновлен, поэтому неудачи деградируют до
// предупреждения. Возвращает текст предупреждения или пустую строку.
func (s *inspectionService) relocateImages(ctx context.Context, store *repository.Store, inspectionID int64,
	oldDate, newDate string) string {
	fromDir, toDir := DateDir(oldDate), DateDir(newDate)

	rows, err := store.ListInspectionImages(ctx, inspectionID)
	if err != nil {
		log.Printf("[InspectionService] Не удалось получить фотографии осмотра %d для переноса: %v", inspectionID, err)
		return "фотографии осмотра не перенесены в каталог новой даты"
	}

	warning := ""
	for _, image := range rows {
		if err = s.images.Relocate(ctx, fromDir, toDir, image.Filename); err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				continue
			}
			log.Printf("[InspectionService] Не удалось перенести файл '%s' в '%s': %v", image.Filename, toDir, err)
			warning = "часть фотографий не перенесена в каталог новой даты"
		}
	}

	s.images.RemoveDayDirIfEmpty(ctx, fromDir)
	return warning
}

// attachImages сохраняет файлы и регистрирует их в БД. Осмотр к этому моменту
// уже зафиксирован, поэтому любые ошибки здесь деградируют до предупреждения.
func (s *inspectionService) attachImages(ctx context.Context, store *repository.Store, inspectionID int64,
	dateYMD string, files []*multipart.FileHeader) *InspectionSaveResult {
	result := &InspectionSaveResult{SavedImages: []string{}}
	if len(files) == 0 {
		return result
	}

	saved, err := s.images.SaveAll(ctx, files, DateDir(dateYMD))
	for _, filename := range saved {
		if _, addErr := store.AddInspectionImage(ctx, inspectionID, filename); addErr != nil {
			log.Printf("[InspectionService] Файл '%s' сохранен, но запись в БД не удалась: %v", filename, addErr)
			result.ImageWarning = "часть фотографий сохранена не полностью"
			continue
		}
		result.SavedImages = append(result.SavedImages, filename)
	}
	if err != nil {
		log.Printf("[InspectionService] Осмотр %d записан, но загрузка фотографий прервана: %v", inspectionID, err)
		result.ImageWarning = fmt.Sprintf("осмотр сохранен, но фотографии загружены не полностью: %v", err)
	}

	return result
}

// Get возвращает осмотр вместе с его фотографиями.
func (s *inspectionService) Get(ctx context.Context, store *repository.Store, id int64) (*models.InspectionWithImages, error) {
	inspection, err := store.GetInspectionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrInspectionNotFound) {
			return nil, ErrInspectionNotFound
		}
		return nil, errors.New("внутренняя ошибка сервера при получении осмотра")
	}

	images, err := store.ListInspectionImages(ctx, id)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при получении фотографий осмотра")
	}

	return &models.InspectionWithImages{Inspection: *inspection, Images: images}, nil
}

// ListGrouped группирует осмотры по календарным дням.
// Список уже отсортирован по убыванию даты, поэтому одинаковые дни идут
// подряд и группировка выполняется одним проходом.
func (s *inspectionService) ListGrouped(ctx context.Context, store *repository.Store) ([]models.InspectionDayGroup, error) {
	inspections, err := store.ListInspections(ctx)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при получении списка осмотров")
	}

	groups := []models.InspectionDayGroup{}
	for _, inspection := range inspections {
		if len(groups) == 0 || groups[len(groups)-1].Date != inspection.Date {
			groups = append(groups, models.InspectionDayGroup{Date: inspection.Date})
		}
		last := &groups[len(groups)-1]
		last.Inspections = append(last.Inspections, inspection)
	}

	return groups, nil
}

// Delete удаляет осмотр: сначала best-effort очистка файлов, затем строка.
func (s *inspectionService) Delete(ctx context.Context, store *repository.Store, id int64) (*CleanupResult, error) {
	inspection, err := store.GetInspectionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrInspectionNotFound) {
			return nil, ErrInspectionNotFound
		}
		return nil, errors.New("внутренняя ошибка сервера при поиске осмотра")
	}

	result := cleanupInspectionImages(ctx, store, s.images, inspection)

	if err = store.DeleteInspection(ctx, id); err != nil {
		return result, errors.New("внутренняя ошибка сервера при удалении осмотра")
	}

	log.Printf("[InspectionService] Осмотр %d удален (файлов убрано: %d, предупреждений: %d)",
		id, result.DeletedFiles, len(result.Warnings))
	return result, nil
}

// BatchCreate создает одинаковый осмотр для каждой из перечисленных семей.
func (s *inspectionService) BatchCreate(ctx context.Context, store *repository.Store, colonyIDs []int64,
	in models.InspectionInput) (int, error) {
	if len(colonyIDs) == 0 {
		return 0, fmt.Errorf("%w: не выбрано ни одной семьи", ErrValidation)
	}

	created := 0
	for _, colonyID := range colonyIDs {
		rowInput := in
		rowInput.ColonyID = colonyID
		if err := s.normalizeInput(ctx, store, &rowInput); err != nil {
			// Уже созданные строки остаются
			return created, err
		}
		if _, err := store.CreateInspection(ctx, rowInput); err != nil {
			return created, errors.New("внутренняя ошибка сервера при создании осмотра")
		}
		created++
	}

	log.Printf("[InspectionService] Пакетно создано %d осмотров", created)
	return created, nil
}

// BatchDelete удаляет осмотры по списку ID. Отсутствующие пропускаются,
// неудачи очистки файлов копятся в общем CleanupResult.
func (s *inspectionService) BatchDelete(ctx context.Context, store *repository.Store, ids []int64) (int, *CleanupResult) {
	deleted := 0
	total := &CleanupResult{}

	for _, id := range ids {
		inspection, err := store.GetInspectionByID(ctx, id)
		if err != nil {
			continue // Отсутствующий или недоступный осмотр пропускаем
		}

		total.merge(cleanupInspectionImages(ctx, store, s.images, inspection))

		if err = store.DeleteInspection(ctx, id); err != nil {
			total.Warnings = append(total.Warnings, fmt.Sprintf("осмотр %d не удален", id))
			continue
		}
		deleted++
	}

	log.Printf("[InspectionService] Пакетно удалено %d осмотров (предупреждений: %d)", deleted, len(total.Warnings))
	return deleted, total
}

// cleanupInspectionImages - best-effort удаление файлов и записей фотографий
// одного осмотра. Отсутствие файла не считается проблемой, прочие неудачи
// логируются и попадают в предупреждения; выполнение всегда продолжается.
func cleanupInspectionImages(ctx context.Context, store *repository.Store, images *storage.ImageManager,
	inspection *models.Inspection) *CleanupResult {
	result := &CleanupResult{}
	dateDir := DateDir(inspection.Date)

	rows, err := store.ListInspectionImages(ctx, inspection.ID)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("не удалось получить фотографии осмотра %d", inspection.ID))
		return result
	}

	for _, image := range rows {
		if err = images.Remove(ctx, dateDir, image.Filename); err != nil {
			if !errors.Is(err, storage.ErrObjectNotFound) {
				log.Printf("[InspectionService] Не удалось удалить файл '%s': %v", image.Filename, err)
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("файл '%s' не удален", image.Filename))
			}
		} else {
			result.DeletedFiles++
		}

		if err = store.DeleteInspectionImageRow(ctx, image.ID); err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("запись фотографии '%s' не удалена", image.Filename))
		}
	}

	images.RemoveDayDirIfEmpty(ctx, dateDir)
	return result
}

// DateDir преобразует дату YYYY-MM-DD в имя каталога дня YYYYMMDD.
func DateDir(dateYMD string) string {
	return strings.ReplaceAll(dateYMD, "-", "")
}

// ErrInspectionNotFound возвращается, если осмотр с указанным ID не существует.
var ErrInspectionNotFound = errors.New("осмотр не найден")
