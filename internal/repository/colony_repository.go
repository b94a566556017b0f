package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/beehivetracker/server/internal/models"
)

// CreateColony создает новую пчелиную семью и возвращает ее ID.
func (s *Store) CreateColony(ctx context.Context, in models.ColonyInput) (int64, error) {
	query := `INSERT INTO bee_colony (name, location, queen_birth, queen_color, queen_number, status, notes)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		in.Name, in.Location, in.QueenBirth, in.QueenColor, in.QueenNumber, in.Status, in.Notes)
	if err != nil {
		log.Printf("[Repo] Ошибка создания семьи '%s': %v", in.Name, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на создание семьи: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка получения ID созданной семьи: %w", err)
	}
	return id, nil
}

// GetColonyByID возвращает семью по ID.
func (s *Store) GetColonyByID(ctx context.Context, id int64) (*models.Colony, error) {
	var colony models.Colony

	err := s.db.GetContext(ctx, &colony, `SELECT * FROM bee_colony WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrColonyNotFound
		}
		log.Printf("[Repo] Ошибка при поиске семьи %d: %v", id, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение семьи: %w", err)
	}

	return &colony, nil
}

// ListColonies возвращает все семьи хранилища.
func (s *Store) ListColonies(ctx context.Context) ([]models.Colony, error) {
	colonies := []models.Colony{}

	if err := s.db.SelectContext(ctx, &colonies, `SELECT * FROM bee_colony ORDER BY id`); err != nil {
		log.Printf("[Repo] Ошибка при получении списка семей: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на список семей: %w", err)
	}

	return colonies, nil
}

// UpdateColony обновляет все поля семьи из типизированной структуры.
func (s *Store) UpdateColony(ctx context.Context, id int64, in models.ColonyInput) error {
	query := `UPDATE bee_colony
	          SET name = ?, location = ?, queen_birth = ?, queen_color = ?, queen_number = ?, status = ?, notes = ?
	          WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		in.Name, in.Location, in.QueenBirth, in.QueenColor, in.QueenNumber, in.Status, in.Notes, id)
	if err != nil {
		log.Printf("[Repo] Ошибка обновления семьи %d: %v", id, err)
		return fmt.Errorf("ошибка выполнения запроса на обновление семьи: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrColonyNotFound
	}

	return nil
}

// UpdateColonyStatus меняет только статус семьи.
func (s *Store) UpdateColonyStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE bee_colony SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		log.Printf("[Repo] Ошибка смены статуса семьи %d: %v", id, err)
		return fmt.Errorf("ошибка выполнения запроса на смену статуса: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrColonyNotFound
	}

	return nil
}

// DeleteColony удаляет строку семьи. Осмотры и записи фотографий удаляются
// каскадно на уровне БД; файлы фотографий должны быть убраны ДО вызова.
func (s *Store) DeleteColony(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bee_colony WHERE id = ?`, id)
	if err != nil {
		log.Printf("[Repo] Ошибка удаления семьи %d: %v", id, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление семьи: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrColonyNotFound
	}

	log.Printf("[Repo] Семья %d удалена", id)
	return nil
}

// ErrColonyNotFound возвращается, если семья с указанным ID не существует.
var ErrColonyNotFound = errors.New("пчелиная семья не найдена")
