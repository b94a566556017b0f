package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/beehivetracker/server/internal/models"
	"github.com/beehivetracker/server/internal/repository"
	"github.com/beehivetracker/server/internal/storage"
)

// ColonyService определяет операции над пчелиными семьями.
// Хранилище передается явно: оно разрешается для каждого запроса
// по учетной записи и приходит из контекста запроса.
type ColonyService interface {
	Create(ctx context.Context, store *repository.Store, in models.ColonyInput) (*models.Colony, error)
	Get(ctx context.Context, store *repository.Store, id int64) (*models.Colony, []models.Inspection, error)
	List(ctx context.Context, store *repository.Store) ([]models.Colony, error)
	Update(ctx context.Context, store *repository.Store, id int64, in models.ColonyInput) error
	UpdateStatus(ctx context.Context, store *repository.Store, id int64, status string) error
	// Delete каскадно удаляет семью со всеми осмотрами и фотографиями.
	// Очистка файлов - best-effort: ее неудачи попадают в CleanupResult,
	// удаление строк выполняется в любом случае.
	Delete(ctx context.Context, store *repository.Store, id int64) (*CleanupResult, error)
}

// CleanupResult - структурированный итог best-effort очистки файлов фотографий.
type CleanupResult struct {
	DeletedFiles int      `json:"deleted_files"`
	Warnings     []string `json:"warnings,omitempty"`
}

// merge добавляет итог другой очистки.
func (c *CleanupResult) merge(other *CleanupResult) {
	c.DeletedFiles += other.DeletedFiles
	c.Warnings = append(c.Warnings, other.Warnings...)
}

// Убедимся, что colonyService удовлетворяет интерфейсу ColonyService.
var _ ColonyService = (*colonyService)(nil)

type colonyService struct {
	images *storage.ImageManager
}

// NewColonyService создает новый экземпляр сервиса семей.
func NewColonyService(images *storage.ImageManager) ColonyService {
	return &colonyService{images: images}
}

// Create создает новую семью. Обязательно только имя.
func (s *colonyService) Create(ctx context.Context, store *repository.Store, in models.ColonyInput) (*models.Colony, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: имя семьи обязательно", ErrValidation)
	}

	id, err := store.CreateColony(ctx, in)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при создании семьи")
	}

	colony, err := store.GetColonyByID(ctx, id)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при чтении созданной семьи")
	}

	log.Printf("[ColonyService] Семья '%s' создана (ID %d)", in.Name, id)
	return colony, nil
}

// Get возвращает семью и ее осмотры по убыванию даты.
func (s *colonyService) Get(ctx context.Context, store *repository.Store, id int64) (*models.Colony, []models.Inspection, error) {
	colony, err := store.GetColonyByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrColonyNotFound) {
			return nil, nil, ErrColonyNotFound
		}
		return nil, nil, errors.New("внутренняя ошибка сервера при получении семьи")
	}

	inspections, err := store.ListInspectionsByColony(ctx, id)
	if err != nil {
		return nil, nil, errors.New("внутренняя ошибка сервера при получении осмотров семьи")
	}

	return colony, inspections, nil
}

// List возвращает все семьи.
func (s *colonyService) List(ctx context.Context, store *repository.Store) ([]models.Colony, error) {
	colonies, err := store.ListColonies(ctx)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при получении списка семей")
	}
	return colonies, nil
}

// Update обновляет семью из типизированной структуры.
func (s *colonyService) Update(ctx context.Context, store *repository.Store, id int64, in models.ColonyInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: имя семьи обязательно", ErrValidation)
	}

	err := store.UpdateColony(ctx, id, in)
	if err != nil {
		if errors.Is(err, repository.ErrColonyNotFound) {
			return ErrColonyNotFound
		}
		return errors.New("внутренняя ошибка сервера при обновлении семьи")
	}

	return nil
}

// UpdateStatus меняет статус семьи; допускаются только stark/mittel/schwach.
func (s *colonyService) UpdateStatus(ctx context.Context, store *repository.Store, id int64, status string) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("%w: недопустимый статус '%s'", ErrValidation, status)
	}

	err := store.UpdateColonyStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrColonyNotFound) {
			return ErrColonyNotFound
		}
		return errors.New("внутренняя ошибка сервера при смене статуса")
	}

	return nil
}

// Delete удаляет семью каскадно. Сначала best-effort очистка файлов фотографий
// всех осмотров, затем удаление строки семьи (осмотры и записи фотографий
// снимаются каскадом БД).
func (s *colonyService) Delete(ctx context.Context, store *repository.Store, id int64) (*CleanupResult, error) {
	if _, err := store.GetColonyByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrColonyNotFound) {
			return nil, ErrColonyNotFound
		}
		return nil, errors.New("внутренняя ошибка сервера при поиске семьи")
	}

	result := &CleanupResult{}

	inspections, err := store.ListInspectionsByColony(ctx, id)
	if err != nil {
		// Файлы почистить не смогли, но удаление строк все равно продолжаем
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("не удалось получить осмотры семьи %d для очистки файлов", id))
	} else {
		for _, inspection := range inspections {
			result.merge(cleanupInspectionImages(ctx, store, s.images, &inspection))
		}
	}

	if err = store.DeleteColony(ctx, id); err != nil {
		return result, errors.New("внутренняя ошибка сервера при удалении семьи")
	}

	log.Printf("[ColonyService] Семья %d удалена (файлов убрано: %d, предупреждений: %d)",
		id, result.DeletedFiles, len(result.Warnings))
	return result, nil
}

// Кастомные ошибки сервисов предметной области.
var (
	ErrValidation     = errors.New("ошибка валидации")
	ErrColonyNotFound = errors.New("пчелиная семья не найдена")
)
