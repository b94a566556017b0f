package models

import "database/sql"

// User представляет учетную запись системы.
// Тэги `db` используются для маппинга с полями БД с помощью sqlx.
// Тэги `json` используются для (де)сериализации JSON.
type User struct {
	ID                  int64         `db:"id" json:"id"`
	Username            string        `db:"username" json:"username"`
	PasswordHash        string        `db:"password_hash" json:"-"` // Не отправляем хеш пароля в JSON
	IsAdmin             bool          `db:"is_admin" json:"is_admin"`
	FailedLoginAttempts int           `db:"failed_login_attempts" json:"failed_login_attempts"`
	LockedUntil         sql.NullInt64 `db:"locked_until" json:"-"` // Unix-время окончания блокировки (NULL = нет блокировки)
	CreatedAt           string        `db:"created_at" json:"created_at"`
}

// LoginRequest представляет тело запроса на вход.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse представляет тело ответа при успешном входе.
type LoginResponse struct {
	Token string `json:"token"`
}

// CreateUserRequest представляет тело запроса на создание учетной записи (только для администратора).
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}
