package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/beehivetracker/server/internal/models"
	"github.com/beehivetracker/server/internal/repository"
)

// AdminService определяет интерфейс административного управления учетными записями.
type AdminService interface {
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UnlockUser(ctx context.Context, id int64) error
	// ResetPassword устанавливает новый пароль и снимает блокировку.
	ResetPassword(ctx context.Context, id int64, newPassword string) error
	// DeleteUser архивирует хранилище учетной записи и удаляет саму запись.
	// Данные хранилища не удаляются, файл переименовывается.
	DeleteUser(ctx context.Context, id int64) error
	// EnsureBootstrapAdmin создает начальную административную учетную запись,
	// если она еще не существует.
	EnsureBootstrapAdmin(ctx context.Context, username, password string) error
}

// Убедимся, что adminService удовлетворяет интерфейсу AdminService.
var _ AdminService = (*adminService)(nil)

type adminService struct {
	userRepo repository.UserRepository
	registry *repository.StoreRegistry
}

// NewAdminService создает новый экземпляр административного сервиса.
func NewAdminService(userRepo repository.UserRepository, registry *repository.StoreRegistry) AdminService {
	return &adminService{userRepo: userRepo, registry: registry}
}

// CreateUser создает новую учетную запись.
func (s *adminService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if !repository.ValidUsername(req.Username) {
		return nil, fmt.Errorf("%w: имя пользователя (3-50 символов: латиница, цифры, '_', '-')", ErrValidation)
	}
	if req.Password == "" {
		return nil, fmt.Errorf("%w: пароль не может быть пустым", ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[AdminService] Ошибка хеширования пароля для '%s': %v", req.Username, err)
		return nil, errors.New("внутренняя ошибка сервера при хешировании пароля")
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		IsAdmin:      req.IsAdmin,
		CreatedAt:    time.Now().Format(time.RFC3339),
	}

	userID, err := s.userRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			log.Printf("[AdminService] Попытка создания учетной записи с занятым именем: %s", req.Username)
			return nil, ErrUsernameTaken
		}
		log.Printf("[AdminService] Непредвиденная ошибка репозитория при создании '%s': %v", req.Username, err)
		return nil, errors.New("внутренняя ошибка сервера при создании учетной записи")
	}

	user.ID = userID
	log.Printf("[AdminService] Учетная запись '%s' создана (admin: %v)", req.Username, req.IsAdmin)
	return user, nil
}

// ListUsers возвращает все учетные записи.
func (s *adminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при получении списка учетных записей")
	}
	return users, nil
}

// UnlockUser снимает блокировку и обнуляет счетчик неудачных попыток.
func (s *adminService) UnlockUser(ctx context.Context, id int64) error {
	err := s.userRepo.UpdateLockState(ctx, id, 0, sql.NullInt64{})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		log.Printf("[AdminService] Ошибка снятия блокировки с учетной записи %d: %v", id, err)
		return errors.New("внутренняя ошибка сервера при снятии блокировки")
	}

	log.Printf("[AdminService] Блокировка учетной записи %d снята", id)
	return nil
}

// ResetPassword устанавливает новый пароль. Попутно снимается блокировка:
// репозиторий обнуляет счетчик попыток вместе со сменой хеша.
func (s *adminService) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: пароль не может быть пустым", ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[AdminService] Ошибка хеширования нового пароля для учетной записи %d: %v", id, err)
		return errors.New("внутренняя ошибка сервера при хешировании пароля")
	}

	if err = s.userRepo.UpdatePassword(ctx, id, string(hashedPassword)); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		log.Printf("[AdminService] Ошибка смены пароля для учетной записи %d: %v", id, err)
		return errors.New("внутренняя ошибка сервера при смене пароля")
	}

	log.Printf("[AdminService] Пароль учетной записи %d сброшен", id)
	return nil
}

// DeleteUser архивирует хранилище учетной записи, затем удаляет запись.
func (s *adminService) DeleteUser(ctx context.Context, id int64) error {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return errors.New("внутренняя ошибка сервера при поиске учетной записи")
	}

	// Сначала освобождаем и архивируем хранилище: открытых дескрипторов
	// на момент переименования файла быть не должно.
	archived, err := s.registry.Archive(user.Username)
	if err != nil {
		log.Printf("[AdminService] Ошибка архивирования хранилища '%s': %v", user.Username, err)
		return errors.New("внутренняя ошибка сервера при архивировании хранилища")
	}
	if archived != "" {
		log.Printf("[AdminService] Хранилище '%s' заархивировано: %s", user.Username, archived)
	}

	if err = s.userRepo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return errors.New("внутренняя ошибка сервера при удалении учетной записи")
	}

	log.Printf("[AdminService] Учетная запись '%s' (%d) удалена", user.Username, id)
	return nil
}

// EnsureBootstrapAdmin создает начальную административную учетную запись.
func (s *adminService) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	_, err := s.userRepo.GetUserByUsername(ctx, username)
	if err == nil {
		return nil // Уже существует
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("ошибка проверки начальной учетной записи: %w", err)
	}

	_, err = s.CreateUser(ctx, models.CreateUserRequest{
		Username: username,
		Password: password,
		IsAdmin:  true,
	})
	if err != nil {
		return fmt.Errorf("ошибка создания начальной учетной записи: %w", err)
	}

	log.Printf("[AdminService] Создана начальная административная учетная запись '%s'", username)
	return nil
}

// Кастомные ошибки административного сервиса.
var (
	ErrUserNotFound  = errors.New("учетная запись не найдена")
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
)
