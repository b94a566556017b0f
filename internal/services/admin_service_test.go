package services_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beehivetracker/server/internal/models"
	"github.com/beehivetracker/server/internal/repository"
	"github.com/beehivetracker/server/internal/services"
)

// newAdminEnv создает административный сервис с пустым хранилищем учетных записей.
func newAdminEnv(t *testing.T) (services.AdminService, repository.UserRepository, *repository.StoreRegistry, string) {
	t.Helper()

	dataDir := t.TempDir()
	db, err := repository.NewAccountsDB(filepath.Join(dataDir, "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	userRepo := repository.NewUserRepository(db)
	registry := repository.NewStoreRegistry(dataDir, "admin")
	t.Cleanup(registry.Close)

	return services.NewAdminService(userRepo, registry), userRepo, registry, dataDir
}

func TestAdminService_CreateUser(t *testing.T) {
	ctx := context.Background()
	service, _, _, _ := newAdminEnv(t)

	t.Run("Успешное создание", func(t *testing.T) {
		user, err := service.CreateUser(ctx, models.CreateUserRequest{
			Username: "imker",
			Password: "geheim123",
		})
		require.NoError(t, err)
		assert.Positive(t, user.ID)
		assert.Equal(t, "imker", user.Username)
		assert.False(t, user.IsAdmin)
		// Хеш не совпадает с открытым паролем
		assert.NotEqual(t, "geheim123", user.PasswordHash)
	})

	t.Run("Занятое имя", func(t *testing.T) {
		_, err := service.CreateUser(ctx, models.CreateUserRequest{Username: "imker", Password: "egal"})
		require.ErrorIs(t, err, services.ErrUsernameTaken)
	})

	tests := []struct {
		name string
		req  models.CreateUserRequest
	}{
		{"Недопустимое имя", models.CreateUserRequest{Username: "a b", Password: "x"}},
		{"Слишком короткое имя", models.CreateUserRequest{Username: "ab", Password: "x"}},
		{"Пустой пароль", models.CreateUserRequest{Username: "gueltig", Password: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateUser(ctx, tt.req)
			require.ErrorIs(t, err, services.ErrValidation)
		})
	}
}

func TestAdminService_UnlockUser(t *testing.T) {
	ctx := context.Background()
	service, userRepo, _, _ := newAdminEnv(t)

	user, err := service.CreateUser(ctx, models.CreateUserRequest{Username: "imker", Password: "geheim123"})
	require.NoError(t, err)

	lockedUntil := sql.NullInt64{Int64: time.Now().Add(30 * time.Minute).Unix(), Valid: true}
	require.NoError(t, userRepo.UpdateLockState(ctx, user.ID, 3, lockedUntil))

	require.NoError(t, service.UnlockUser(ctx, user.ID))

	unlocked, err := userRepo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, unlocked.FailedLoginAttempts)
	assert.False(t, unlocked.LockedUntil.Valid)

	t.Run("Несуществующая учетная запись", func(t *testing.T) {
		require.ErrorIs(t, service.UnlockUser(ctx, 9999), services.ErrUserNotFound)
	})
}

func TestAdminService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	service, userRepo, _, _ := newAdminEnv(t)

	user, err := service.CreateUser(ctx, models.CreateUserRequest{Username: "imker", Password: "alt"})
	require.NoError(t, err)

	// Заблокированная учетная запись
	lockedUntil := sql.NullInt64{Int64: time.Now().Add(30 * time.Minute).Unix(), Valid: true}
	require.NoError(t, userRepo.UpdateLockState(ctx, user.ID, 3, lockedUntil))

	require.NoError(t, service.ResetPassword(ctx, user.ID, "neu123"))

	// Хеш сменился, блокировка снята
	updated, err := userRepo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, user.PasswordHash, updated.PasswordHash)
	assert.Zero(t, updated.FailedLoginAttempts)
	assert.False(t, updated.LockedUntil.Valid)

	t.Run("Пустой пароль", func(t *testing.T) {
		require.ErrorIs(t, service.ResetPassword(ctx, user.ID, ""), services.ErrValidation)
	})

	t.Run("Несуществующая учетная запись", func(t *testing.T) {
		require.ErrorIs(t, service.ResetPassword(ctx, 9999, "egal"), services.ErrUserNotFound)
	})
}

func TestAdminService_DeleteUser(t *testing.T) {
	ctx := context.Background()
	service, userRepo, registry, dataDir := newAdminEnv(t)

	user, err := service.CreateUser(ctx, models.CreateUserRequest{Username: "imker", Password: "geheim123"})
	require.NoError(t, err)

	// У учетной записи есть хранилище с данными
	store, err := registry.Resolve("imker")
	require.NoError(t, err)
	_, err = store.CreateColony(ctx, models.ColonyInput{Name: "Stock A"})
	require.NoError(t, err)

	require.NoError(t, service.DeleteUser(ctx, user.ID))

	// Учетная запись удалена, хранилище заархивировано, не удалено
	_, err = userRepo.GetUserByID(ctx, user.ID)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
	_, err = os.Stat(filepath.Join(dataDir, "bienen_imker.db"))
	require.ErrorIs(t, err, os.ErrNotExist)

	matches, err := filepath.Glob(filepath.Join(dataDir, "bienen_imker_archiviert_*.db"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestAdminService_EnsureBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	service, userRepo, _, _ := newAdminEnv(t)

	require.NoError(t, service.EnsureBootstrapAdmin(ctx, "admin", "geheim123"))

	admin, err := userRepo.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	// Повторный вызов ничего не меняет
	require.NoError(t, service.EnsureBootstrapAdmin(ctx, "admin", "anderes"))

	again, err := userRepo.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, admin.PasswordHash, again.PasswordHash)
}
