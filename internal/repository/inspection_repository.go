package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/beehivetracker/server/internal/models"
)

const inspectionColumns = `id, colony_id, date, honey_yield, queen_seen, varroa_check, notes,
	mittelwaende, brutwaben, futterwaben, volksstaerke, sanftmut, vitalitaet, brut, drohnenbrut_geschnitten`

// CreateInspection создает осмотр и возвращает его ID.
// Значения оценок сохраняются как введены, без нормализации.
func (s *Store) CreateInspection(ctx context.Context, in models.InspectionInput) (int64, error) {
	query := `INSERT INTO inspection (colony_id, date, honey_yield, queen_seen, varroa_check, notes,
	              mittelwaende, brutwaben, futterwaben, volksstaerke, sanftmut, vitalitaet, brut, drohnenbrut_geschnitten)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		in.ColonyID, in.Date, in.HoneyYield, in.QueenSeen, in.VarroaCheck, in.Notes,
		in.Mittelwaende, in.Brutwaben, in.Futterwaben, in.Volksstaerke, in.Sanftmut, in.Vitalitaet, in.Brut,
		in.DrohnenbrutGeschnitten)
	if err != nil {
		log.Printf("[Repo] Ошибка создания осмотра для семьи %d: %v", in.ColonyID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на создание осмотра: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка получения ID созданного осмотра: %w", err)
	}
	return id, nil
}

// GetInspectionByID возвращает осмотр по ID.
func (s *Store) GetInspectionByID(ctx context.Context, id int64) (*models.Inspection, error) {
	var inspection models.Inspection

	query := `SELECT ` + inspectionColumns + ` FROM inspection WHERE id = ?`
	err := s.db.GetContext(ctx, &inspection, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInspectionNotFound
		}
		log.Printf("[Repo] Ошибка при поиске осмотра %d: %v", id, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение осмотра: %w", err)
	}

	return &inspection, nil
}

// ListInspections возвращает все осмотры по убыванию даты.
// Внутри одного дня порядок стабильный: id по убыванию.
func (s *Store) ListInspections(ctx context.Context) ([]models.Inspection, error) {
	inspections := []models.Inspection{}

	query := `SELECT ` + inspectionColumns + ` FROM inspection ORDER BY date DESC, id DESC`
	if err := s.db.SelectContext(ctx, &inspections, query); err != nil {
		log.Printf("[Repo] Ошибка при получении списка осмотров: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на список осмотров: %w", err)
	}

	return inspections, nil
}

// ListInspectionsByColony возвращает осмотры одной семьи по убыванию даты.
func (s *Store) ListInspectionsByColony(ctx context.Context, colonyID int64) ([]models.Inspection, error) {
	inspections := []models.Inspection{}

	query := `SELECT ` + inspectionColumns + ` FROM inspection WHERE colony_id = ? ORDER BY date DESC, id DESC`
	if err := s.db.SelectContext(ctx, &inspections, query, colonyID); err != nil {
		log.Printf("[Repo] Ошибка при получении осмотров семьи %d: %v", colonyID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на осмотры семьи: %w", err)
	}

	return inspections, nil
}

// UpdateInspection обновляет все поля осмотра из типизированной структуры.
func (s *Store) UpdateInspection(ctx context.Context, id int64, in models.InspectionInput) error {
	query := `UPDATE inspection
	          SET colony_id = ?, date = ?, honey_yield = ?, queen_seen = ?, varroa_check = ?, notes = ?,
	              mittelwaende = ?, brutwaben = ?, futterwaben = ?, volksstaerke = ?, sanftmut = ?,
	              vitalitaet = ?, brut = ?, drohnenbrut_geschnitten = ?
	          WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		in.ColonyID, in.Date, in.HoneyYield, in.QueenSeen, in.VarroaCheck, in.Notes,
		in.Mittelwaende, in.Brutwaben, in.Futterwaben, in.Volksstaerke, in.Sanftmut, in.Vitalitaet, in.Brut,
		in.DrohnenbrutGeschnitten, id)
	if err != nil {
		log.Printf("[Repo] Ошибка обновления осмотра %d: %v", id, err)
		return fmt.Errorf("ошибка выполнения запроса на обновление осмотра: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrInspectionNotFound
	}

	return nil
}

// DeleteInspection удаляет строку осмотра. Записи фотографий удаляются каскадно;
// файлы фотографий должны быть убраны ДО вызова.
func (s *Store) DeleteInspection(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM inspection WHERE id = ?`, id)
	if err != nil {
		log.Printf("[Repo] Ошибка удаления осмотра %d: %v", id, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление осмотра: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrInspectionNotFound
	}

	log.Printf("[Repo] Осмотр %d удален", id)
	return nil
}

// ErrInspectionNotFound возвращается, если осмотр с указанным ID не существует.
var ErrInspectionNotFound = errors.New("осмотр не найден")
