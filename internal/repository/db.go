package repository

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Драйвер SQLite (без CGO), импортируем для регистрации
)

const (
	maxOpenConns    = 1               // SQLite: один писатель, сериализуем доступ на уровне пула
	connMaxIdleTime = 5 * time.Minute // Максимальное время простоя соединения
)

// accountsSchema - схема общего хранилища учетных записей (users.db).
const accountsSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_admin INTEGER NOT NULL DEFAULT 0,
	failed_login_attempts INTEGER NOT NULL DEFAULT 0,
	locked_until INTEGER,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`

// openSQLite открывает файл SQLite с нужными прагмами и проверяет соединение.
func openSQLite(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД '%s': %w", path, err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	return db, nil
}

// NewAccountsDB открывает общее хранилище учетных записей и создает схему при необходимости.
func NewAccountsDB(path string) (*sqlx.DB, error) {
	log.Printf("Открытие хранилища учетных записей: %s", path)

	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	if _, err = db.Exec(accountsSchema); err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			log.Printf("Ошибка закрытия БД после неудачной миграции: %v", closeErr)
		}
		return nil, fmt.Errorf("ошибка создания схемы учетных записей: %w", err)
	}

	log.Println("Хранилище учетных записей готово.")
	return db, nil
}
