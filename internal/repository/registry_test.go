package repository_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beehivetracker/server/internal/repository"
)

func TestValidUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"Обычное имя", "imker", true},
		{"Цифры и дефис", "imker-2", true},
		{"Подчеркивание", "max_mustermann", true},
		{"Слишком короткое", "ab", false},
		{"Разделитель пути", "../etc", false},
		{"Пробел", "max mustermann", false},
		{"Пустое", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repository.ValidUsername(tt.username))
		})
	}
}

func TestStoreRegistry_StorePath(t *testing.T) {
	registry := repository.NewStoreRegistry("/data", "admin")

	// Начальная учетная запись закреплена за историческим файлом
	assert.Equal(t, filepath.Join("/data", "bienen.db"), registry.StorePath("admin"))
	assert.Equal(t, filepath.Join("/data", "bienen_imker.db"), registry.StorePath("imker"))
}

func TestStoreRegistry_Resolve(t *testing.T) {
	dataDir := t.TempDir()
	registry := repository.NewStoreRegistry(dataDir, "admin")
	t.Cleanup(registry.Close)

	t.Run("Повторное разрешение возвращает тот же экземпляр", func(t *testing.T) {
		first, err := registry.Resolve("imker")
		require.NoError(t, err)
		second, err := registry.Resolve("imker")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("Файл хранилища создается на диске", func(t *testing.T) {
		_, err := registry.Resolve("berta")
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(dataDir, "bienen_berta.db"))
		require.NoError(t, err)
	})

	t.Run("Недопустимое имя", func(t *testing.T) {
		_, err := registry.Resolve("../boese")
		require.ErrorIs(t, err, repository.ErrInvalidStoreName)
	})

	t.Run("Разные учетные записи изолированы", func(t *testing.T) {
		a, err := registry.Resolve("anton")
		require.NoError(t, err)
		b, err := registry.Resolve("bernd")
		require.NoError(t, err)
		assert.NotSame(t, a, b)
	})
}

func TestStoreRegistry_Archive(t *testing.T) {
	dataDir := t.TempDir()
	registry := repository.NewStoreRegistry(dataDir, "admin")
	t.Cleanup(registry.Close)

	t.Run("Архивирование переименовывает файл", func(t *testing.T) {
		_, err := registry.Resolve("imker")
		require.NoError(t, err)

		archived, err := registry.Archive("imker")
		require.NoError(t, err)
		require.NotEmpty(t, archived)

		// Исходный файл исчез, архив существует
		_, err = os.Stat(filepath.Join(dataDir, "bienen_imker.db"))
		require.ErrorIs(t, err, os.ErrNotExist)
		_, err = os.Stat(archived)
		require.NoError(t, err)
		assert.Contains(t, filepath.Base(archived), "bienen_imker_archiviert_")
	})

	t.Run("Повторное разрешение после архивирования открывает новое хранилище", func(t *testing.T) {
		store, err := registry.Resolve("imker")
		require.NoError(t, err)
		require.NoError(t, store.Ping())
	})

	t.Run("Архивирование несуществующего хранилища", func(t *testing.T) {
		archived, err := registry.Archive("niemand")
		require.NoError(t, err)
		assert.Empty(t, archived)
	})
}
