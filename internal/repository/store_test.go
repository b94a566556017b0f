package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beehivetracker/server/internal/models"
	"github.com/beehivetracker/server/internal/repository"
)

// openTestStore открывает хранилище во временном каталоге теста.
func openTestStore(t *testing.T) *repository.Store {
	t.Helper()

	store, err := repository.OpenStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestStore_ColonyCRUD(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	t.Run("Создание и чтение семьи", func(t *testing.T) {
		id, err := store.CreateColony(ctx, models.ColonyInput{
			Name:        "Stock A",
			Location:    "Obstwiese",
			QueenBirth:  "2024-05-01",
			QueenColor:  "green",
			QueenNumber: "17",
			Status:      models.StatusStark,
			Notes:       "ruhig",
		})
		require.NoError(t, err)

		colony, err := store.GetColonyByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Stock A", colony.Name)
		assert.Equal(t, "Obstwiese", colony.Location)
		assert.Equal(t, "green", colony.QueenColor)
		assert.Equal(t, models.StatusStark, colony.Status)
	})

	t.Run("Несуществующая семья", func(t *testing.T) {
		_, err := store.GetColonyByID(ctx, 9999)
		require.ErrorIs(t, err, repository.ErrColonyNotFound)
	})

	t.Run("Обновление семьи", func(t *testing.T) {
		id, err := store.CreateColony(ctx, models.ColonyInput{Name: "Stock B"})
		require.NoError(t, err)

		err = store.UpdateColony(ctx, id, models.ColonyInput{
			Name:   "Stock B neu",
			Status: models.StatusSchwach,
		})
		require.NoError(t, err)

		colony, err := store.GetColonyByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Stock B neu", colony.Name)
		assert.Equal(t, models.StatusSchwach, colony.Status)
	})

	t.Run("Смена статуса", func(t *testing.T) {
		id, err := store.CreateColony(ctx, models.ColonyInput{Name: "Stock C", Status: models.StatusMittel})
		require.NoError(t, err)

		require.NoError(t, store.UpdateColonyStatus(ctx, id, models.StatusStark))

		colony, err := store.GetColonyByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusStark, colony.Status)
	})

	t.Run("Обновление несуществующей семьи", func(t *testing.T) {
		err := store.UpdateColony(ctx, 9999, models.ColonyInput{Name: "x"})
		require.ErrorIs(t, err, repository.ErrColonyNotFound)

		err = store.UpdateColonyStatus(ctx, 9999, models.StatusStark)
		require.ErrorIs(t, err, repository.ErrColonyNotFound)
	})
}

func TestStore_InspectionCRUD(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	colonyID, err := store.CreateColony(ctx, models.ColonyInput{Name: "Stock A"})
	require.NoError(t, err)

	t.Run("Создание с опциональными полями", func(t *testing.T) {
		id, err := store.CreateInspection(ctx, models.InspectionInput{
			ColonyID:     colonyID,
			Date:         "2026-08-01",
			HoneyYield:   floatPtr(12.5),
			QueenSeen:    true,
			VarroaCheck:  "niedrig",
			Notes:        "alles gut",
			Volksstaerke: intPtr(4),
			Sanftmut:     intPtr(5),
			Brutwaben:    intPtr(6),
		})
		require.NoError(t, err)

		inspection, err := store.GetInspectionByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "2026-08-01", inspection.Date)
		assert.True(t, inspection.QueenSeen)
		require.NotNil(t, inspection.HoneyYield)
		assert.InDelta(t, 12.5, *inspection.HoneyYield, 0.001)
		require.NotNil(t, inspection.Volksstaerke)
		assert.Equal(t, 4, *inspection.Volksstaerke)
		// Незаполненные опциональные поля остаются nil
		assert.Nil(t, inspection.Mittelwaende)
		assert.Nil(t, inspection.Brut)
	})

	t.Run("Обновление перезаписывает и очищает поля", func(t *testing.T) {
		id, err := store.CreateInspection(ctx, models.InspectionInput{
			ColonyID:   colonyID,
			Date:       "2026-08-02",
			HoneyYield: floatPtr(3),
			Sanftmut:   intPtr(2),
		})
		require.NoError(t, err)

		// nil в типизированной структуре означает очистку значения
		err = store.UpdateInspection(ctx, id, models.InspectionInput{
			ColonyID:  colonyID,
			Date:      "2026-08-03",
			QueenSeen: true,
		})
		require.NoError(t, err)

		inspection, err := store.GetInspectionByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "2026-08-03", inspection.Date)
		assert.True(t, inspection.QueenSeen)
		assert.Nil(t, inspection.HoneyYield)
		assert.Nil(t, inspection.Sanftmut)
	})

	t.Run("Несуществующий осмотр", func(t *testing.T) {
		_, err := store.GetInspectionByID(ctx, 9999)
		require.ErrorIs(t, err, repository.ErrInspectionNotFound)

		err = store.UpdateInspection(ctx, 9999, models.InspectionInput{ColonyID: colonyID, Date: "2026-01-01"})
		require.ErrorIs(t, err, repository.ErrInspectionNotFound)
	})
}

func TestStore_InspectionOrdering(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	colonyID, err := store.CreateColony(ctx, models.ColonyInput{Name: "Stock A"})
	require.NoError(t, err)

	for _, date := range []string{"2026-08-01", "2026-08-03", "2026-08-02", "2026-08-03"} {
		_, err = store.CreateInspection(ctx, models.InspectionInput{ColonyID: colonyID, Date: date})
		require.NoError(t, err)
	}

	inspections, err := store.ListInspections(ctx)
	require.NoError(t, err)
	require.Len(t, inspections, 4)

	// По убыванию даты, внутри дня - по убыванию id
	assert.Equal(t, "2026-08-03", inspections[0].Date)
	assert.Equal(t, "2026-08-03", inspections[1].Date)
	assert.Greater(t, inspections[0].ID, inspections[1].ID)
	assert.Equal(t, "2026-08-02", inspections[2].Date)
	assert.Equal(t, "2026-08-01", inspections[3].Date)
}

func TestStore_CascadeDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	colonyID, err := store.CreateColony(ctx, models.ColonyInput{Name: "Stock A"})
	require.NoError(t, err)

	inspectionID, err := store.CreateInspection(ctx, models.InspectionInput{ColonyID: colonyID, Date: "2026-08-01"})
	require.NoError(t, err)

	_, err = store.AddInspectionImage(ctx, inspectionID, "20260801_120000_foto.jpg")
	require.NoError(t, err)

	require.NoError(t, store.DeleteColony(ctx, colonyID))

	// Осмотры и записи фотографий снимаются каскадом БД
	_, err = store.GetInspectionByID(ctx, inspectionID)
	require.ErrorIs(t, err, repository.ErrInspectionNotFound)

	images, err := store.ListInspectionImages(ctx, inspectionID)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestStore_HasImageFilename(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	colonyID, err := store.CreateColony(ctx, models.ColonyInput{Name: "Stock A"})
	require.NoError(t, err)
	inspectionID, err := store.CreateInspection(ctx, models.InspectionInput{ColonyID: colonyID, Date: "2026-08-01"})
	require.NoError(t, err)
	_, err = store.AddInspectionImage(ctx, inspectionID, "20260801_120000_foto.jpg")
	require.NoError(t, err)

	tests := []struct {
		name     string
		dateYMD  string
		filename string
		want     bool
	}{
		{"Известный файл своей даты", "20260801", "20260801_120000_foto.jpg", true},
		{"Известный файл чужой даты", "20260802", "20260801_120000_foto.jpg", false},
		{"Неизвестный файл", "20260801", "fremd.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.HasImageFilename(ctx, tt.dateYMD, tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
