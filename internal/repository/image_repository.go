package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/beehivetracker/server/internal/models"
)

// AddInspectionImage добавляет запись о загруженной фотографии осмотра.
func (s *Store) AddInspectionImage(ctx context.Context, inspectionID int64, filename string) (int64, error) {
	query := `INSERT INTO inspection_image (inspection_id, filename, uploaded_at) VALUES (?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query, inspectionID, filename, time.Now().Format(time.RFC3339))
	if err != nil {
		log.Printf("[Repo] Ошибка добавления фотографии '%s' к осмотру %d: %v", filename, inspectionID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на добавление фотографии: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка получения ID добавленной фотографии: %w", err)
	}
	return id, nil
}

// ListInspectionImages возвращает фотографии осмотра в порядке загрузки.
func (s *Store) ListInspectionImages(ctx context.Context, inspectionID int64) ([]models.InspectionImage, error) {
	images := []models.InspectionImage{}

	query := `SELECT id, inspection_id, filename, uploaded_at FROM inspection_image WHERE inspection_id = ? ORDER BY id`
	if err := s.db.SelectContext(ctx, &images, query, inspectionID); err != nil {
		log.Printf("[Repo] Ошибка при получении фотографий осмотра %d: %v", inspectionID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на фотографии осмотра: %w", err)
	}

	return images, nil
}

// HasImageFilename проверяет, что файл с таким именем числится за каким-либо
// осмотром указанной даты. Используется при отдаче файлов, чтобы не раздавать
// произвольное содержимое каталога загрузок.
func (s *Store) HasImageFilename(ctx context.Context, dateYMD, filename string) (bool, error) {
	query := `SELECT i.id FROM inspection_image i
	          JOIN inspection insp ON insp.id = i.inspection_id
	          WHERE i.filename = ? AND replace(insp.date, '-', '') = ?`

	var id int64
	err := s.db.GetContext(ctx, &id, query, filename, dateYMD)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("ошибка проверки принадлежности файла: %w", err)
	}
	return true, nil
}

// DeleteInspectionImageRow удаляет запись о фотографии.
func (s *Store) DeleteInspectionImageRow(ctx context.Context, imageID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM inspection_image WHERE id = ?`, imageID); err != nil {
		log.Printf("[Repo] Ошибка удаления записи фотографии %d: %v", imageID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление фотографии: %w", err)
	}
	return nil
}
