package services_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beehivetracker/server/internal/models"
	"github.com/beehivetracker/server/internal/services"
)

func TestColonyService_Create(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	service := services.NewColonyService(env.images)

	t.Run("Создание с полными данными", func(t *testing.T) {
		colony, err := service.Create(ctx, env.store, models.ColonyInput{
			Name:       "Stock A",
			Location:   "Obstwiese",
			QueenColor: "blue",
			Status:     models.StatusMittel,
		})
		require.NoError(t, err)
		assert.Positive(t, colony.ID)
		assert.Equal(t, "Stock A", colony.Name)
		assert.Equal(t, models.StatusMittel, colony.Status)
	})

	t.Run("Имя обязательно", func(t *testing.T) {
		_, err := service.Create(ctx, env.store, models.ColonyInput{Location: "irgendwo"})
		require.ErrorIs(t, err, services.ErrValidation)
	})
}

func TestColonyService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	service := services.NewColonyService(env.images)

	colony, err := service.Create(ctx, env.store, models.ColonyInput{Name: "Stock A", Status: models.StatusSchwach})
	require.NoError(t, err)

	t.Run("Допустимый статус", func(t *testing.T) {
		require.NoError(t, service.UpdateStatus(ctx, env.store, colony.ID, models.StatusStark))

		updated, _, err := service.Get(ctx, env.store, colony.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusStark, updated.Status)
	})

	t.Run("Недопустимый статус отклоняется", func(t *testing.T) {
		err := service.UpdateStatus(ctx, env.store, colony.ID, "super")
		require.ErrorIs(t, err, services.ErrValidation)
	})

	t.Run("Несуществующая семья", func(t *testing.T) {
		err := service.UpdateStatus(ctx, env.store, 9999, models.StatusStark)
		require.ErrorIs(t, err, services.ErrColonyNotFound)
	})
}

func TestColonyService_Update(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	service := services.NewColonyService(env.images)

	colony, err := service.Create(ctx, env.store, models.ColonyInput{Name: "Stock A"})
	require.NoError(t, err)

	err = service.Update(ctx, env.store, colony.ID, models.ColonyInput{
		Name:        "Stock A neu",
		QueenNumber: "23",
	})
	require.NoError(t, err)

	updated, _, err := service.Get(ctx, env.store, colony.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stock A neu", updated.Name)
	assert.Equal(t, "23", updated.QueenNumber)

	t.Run("Пустое имя отклоняется", func(t *testing.T) {
		err = service.Update(ctx, env.store, colony.ID, models.ColonyInput{})
		require.ErrorIs(t, err, services.ErrValidation)
	})
}

func TestColonyService_Delete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	colonyService := services.NewColonyService(env.images)
	inspectionService := services.NewInspectionService(env.images)

	colony, err := colonyService.Create(ctx, env.store, models.ColonyInput{Name: "Stock A"})
	require.NoError(t, err)

	// Два осмотра с фотографиями в разных днях
	first, err := inspectionService.Create(ctx, env.store, models.InspectionInput{
		ColonyID: colony.ID,
		Date:     "2026-08-01",
	}, makeImageHeaders(t, map[string][]byte{"eins.jpg": []byte("a")}))
	require.NoError(t, err)
	require.Len(t, first.SavedImages, 1)

	second, err := inspectionService.Create(ctx, env.store, models.InspectionInput{
		ColonyID: colony.ID,
		Date:     "2026-08-02",
	}, makeImageHeaders(t, map[string][]byte{"zwei.jpg": []byte("b")}))
	require.NoError(t, err)
	require.Len(t, second.SavedImages, 1)

	cleanup, err := colonyService.Delete(ctx, env.store, colony.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cleanup.DeletedFiles)
	assert.Empty(t, cleanup.Warnings)

	// Семья, осмотры и файлы исчезли
	_, _, err = colonyService.Get(ctx, env.store, colony.ID)
	require.ErrorIs(t, err, services.ErrColonyNotFound)
	_, err = inspectionService.Get(ctx, env.store, first.Inspection.ID)
	require.ErrorIs(t, err, services.ErrInspectionNotFound)
	_, err = os.Stat(filepath.Join(env.uploadsDir, "20260801"))
	require.ErrorIs(t, err, os.ErrNotExist)

	t.Run("Несуществующая семья", func(t *testing.T) {
		_, err = colonyService.Delete(ctx, env.store, 9999)
		require.ErrorIs(t, err, services.ErrColonyNotFound)
	})
}
