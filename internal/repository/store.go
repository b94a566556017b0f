package repository

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// domainSchema - схема изолированного хранилища данных одной учетной записи.
// Имена таблиц и колонок совпадают с исторической схемой приложения.
const domainSchema = `
CREATE TABLE IF NOT EXISTS bee_colony (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	queen_birth TEXT NOT NULL DEFAULT '',
	queen_color TEXT NOT NULL DEFAULT '',
	queen_number TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS inspection (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	colony_id INTEGER NOT NULL REFERENCES bee_colony(id) ON DELETE CASCADE,
	date TEXT NOT NULL,
	honey_yield REAL,
	queen_seen INTEGER NOT NULL DEFAULT 0,
	varroa_check TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	mittelwaende INTEGER,
	brutwaben INTEGER,
	futterwaben INTEGER,
	volksstaerke INTEGER,
	sanftmut INTEGER,
	vitalitaet INTEGER,
	brut INTEGER,
	drohnenbrut_geschnitten INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_inspection_colony ON inspection(colony_id);
CREATE INDEX IF NOT EXISTS idx_inspection_date ON inspection(date);
CREATE TABLE IF NOT EXISTS inspection_image (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	inspection_id INTEGER NOT NULL REFERENCES inspection(id) ON DELETE CASCADE,
	filename TEXT NOT NULL,
	uploaded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_inspection_image_inspection ON inspection_image(inspection_id);
`

// Store - хранилище данных одной учетной записи (семьи, осмотры, фотографии).
// Методы CRUD определены в colony_repository.go, inspection_repository.go и image_repository.go.
type Store struct {
	db *sqlx.DB
}

// OpenStore открывает файл хранилища и создает схему при необходимости.
func OpenStore(path string) (*Store, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	if _, err = db.Exec(domainSchema); err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			log.Printf("Ошибка закрытия хранилища после неудачной миграции: %v", closeErr)
		}
		return nil, fmt.Errorf("ошибка создания схемы хранилища '%s': %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close закрывает соединение с хранилищем.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping проверяет доступность хранилища.
func (s *Store) Ping() error {
	return s.db.Ping()
}
