package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/beehivetracker/server/internal/models"
)

// UserRepository определяет методы для работы с учетными записями в общем хранилище.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	// UpdateLockState фиксирует счетчик неудачных попыток и срок блокировки.
	// Выполняется отдельной транзакцией: учет попыток входа должен быть
	// зафиксирован до формирования ответа, независимо от бизнес-операций.
	UpdateLockState(ctx context.Context, id int64, attempts int, lockedUntil sql.NullInt64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	DeleteUser(ctx context.Context, id int64) error
}

// sqliteUserRepository реализует UserRepository для SQLite.
type sqliteUserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создает новый экземпляр репозитория учетных записей.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

// CreateUser создает новую учетную запись.
// Возвращает ID созданной записи или ошибку.
func (r *sqliteUserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	query := `INSERT INTO users (username, password_hash, is_admin, failed_login_attempts, locked_until, created_at)
	          VALUES (?, ?, ?, 0, NULL, ?)`

	res, err := r.db.ExecContext(ctx, query, user.Username, user.PasswordHash, user.IsAdmin, user.CreatedAt)
	if err != nil {
		// Проверяем на нарушение уникальности имени пользователя
		var sqErr *sqlite.Error
		if errors.As(err, &sqErr) && sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			log.Printf("[Repo] Ошибка создания учетной записи: имя '%s' уже занято", user.Username)
			return 0, ErrUsernameTaken
		}
		log.Printf("[Repo] Непредвиденная ошибка при создании учетной записи '%s': %v", user.Username, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на создание учетной записи: %w", err)
	}

	userID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка получения ID созданной учетной записи: %w", err)
	}

	log.Printf("[Repo] Учетная запись '%s' создана с ID %d", user.Username, userID)
	return userID, nil
}

// GetUserByUsername находит учетную запись по имени (точное совпадение с учетом регистра).
func (r *sqliteUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, is_admin, failed_login_attempts, locked_until, created_at
	          FROM users WHERE username = ?`
	var user models.User

	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		log.Printf("[Repo] Ошибка при поиске учетной записи '%s': %v", username, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение учетной записи: %w", err)
	}

	return &user, nil
}

// GetUserByID находит учетную запись по ID.
func (r *sqliteUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username, password_hash, is_admin, failed_login_attempts, locked_until, created_at
	          FROM users WHERE id = ?`
	var user models.User

	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		log.Printf("[Repo] Ошибка при поиске учетной записи %d: %v", id, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение учетной записи: %w", err)
	}

	return &user, nil
}

// ListUsers возвращает все учетные записи, отсортированные по имени.
func (r *sqliteUserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT id, username, password_hash, is_admin, failed_login_attempts, locked_until, created_at
	          FROM users ORDER BY username`
	users := []models.User{}

	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		log.Printf("[Repo] Ошибка при получении списка учетных записей: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на список учетных записей: %w", err)
	}

	return users, nil
}

// UpdateLockState фиксирует состояние блокировки учетной записи.
func (r *sqliteUserRepository) UpdateLockState(ctx context.Context, id int64, attempts int, lockedUntil sql.NullInt64) error {
	query := `UPDATE users SET failed_login_attempts = ?, locked_until = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, attempts, lockedUntil, id)
	if err != nil {
		log.Printf("[Repo] Ошибка обновления состояния блокировки для учетной записи %d: %v", id, err)
		return fmt.Errorf("ошибка обновления состояния блокировки: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdatePassword устанавливает новый хеш пароля и снимает блокировку.
func (r *sqliteUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, failed_login_attempts = 0, locked_until = NULL WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		log.Printf("[Repo] Ошибка обновления пароля для учетной записи %d: %v", id, err)
		return fmt.Errorf("ошибка обновления пароля: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// DeleteUser удаляет строку учетной записи.
// Архивирование хранилища данных выполняется на уровне сервиса ДО вызова этого метода.
func (r *sqliteUserRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		log.Printf("[Repo] Ошибка удаления учетной записи %d: %v", id, err)
		return fmt.Errorf("ошибка удаления учетной записи: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrUserNotFound
	}

	log.Printf("[Repo] Учетная запись %d удалена", id)
	return nil
}

// Кастомные ошибки репозитория.
var (
	ErrUserNotFound  = errors.New("учетная запись не найдена")
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
)
