package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/beehivetracker/server/internal/middleware"
	"github.com/beehivetracker/server/internal/models"
	"github.com/beehivetracker/server/internal/repository"
	"github.com/beehivetracker/server/internal/services"
)

var testSecret = []byte("test-secret")

// authEnv - общее хранилище учетных записей, реестр и собранный middleware.
type authEnv struct {
	userRepo     repository.UserRepository
	registry     *repository.StoreRegistry
	dataDir      string
	authenticate func(http.Handler) http.Handler
}

func newAuthEnv(t *testing.T) *authEnv {
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

	return &authEnv{
		userRepo:     userRepo,
		registry:     registry,
		dataDir:      dataDir,
		authenticate: middleware.Authenticator(testSecret, userRepo, registry),
	}
}

// issueToken создает пользователя и возвращает его ID вместе с валидным JWT.
func (e *authEnv) issueToken(t *testing.T, username string, isAdmin bool) (int64, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("geheim123"), bcrypt.MinCost)
	require.NoError(t, err)
	id, err := e.userRepo.CreateUser(context.Background(), &models.User{
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now().Format(time.RFC3339),
	})
	require.NoError(t, err)

	token, err := services.NewAuthService(e.userRepo, testSecret).Login(context.Background(), username, "geheim123")
	require.NoError(t, err)
	return id, token
}

// captureHandler запоминает данные, привязанные к контексту запроса.
type captureHandler struct {
	claims *services.Claims
	store  *repository.Store
	called bool
}

func (h *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.claims, _ = middleware.GetClaimsFromContext(r.Context())
	h.store, _ = middleware.GetStoreFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticator(t *testing.T) {
	env := newAuthEnv(t)

	t.Run("Токен в заголовке Authorization", func(t *testing.T) {
		_, token := env.issueToken(t, "imker", false)
		next := &captureHandler{}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.authenticate(next).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, next.called)
		require.NotNil(t, next.claims)
		assert.Equal(t, "imker", next.claims.Username)
		require.NotNil(t, next.store)
	})

	t.Run("Токен в cookie", func(t *testing.T) {
		_, token := env.issueToken(t, "berta", false)
		next := &captureHandler{}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: middleware.AuthCookieName, Value: token})
		rec := httptest.NewRecorder()
		env.authenticate(next).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, next.claims)
		assert.Equal(t, "berta", next.claims.Username)
	})

	t.Run("Испорченный заголовок не мешает cookie", func(t *testing.T) {
		_, token := env.issueToken(t, "clara", false)
		next := &captureHandler{}

		// Токен без префикса Bearer в заголовке игнорируется, cookie работает
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", token)
		req.AddCookie(&http.Cookie{Name: middleware.AuthCookieName, Value: token})
		rec := httptest.NewRecorder()
		env.authenticate(next).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, next.claims)
		assert.Equal(t, "clara", next.claims.Username)
	})

	t.Run("Один реестр дает разным учетным записям разные хранилища", func(t *testing.T) {
		_, tokenA := env.issueToken(t, "anton", false)
		_, tokenB := env.issueToken(t, "bernd", false)

		nextA := &captureHandler{}
		reqA := httptest.NewRequest(http.MethodGet, "/", nil)
		reqA.Header.Set("Authorization", "Bearer "+tokenA)
		env.authenticate(nextA).ServeHTTP(httptest.NewRecorder(), reqA)

		nextB := &captureHandler{}
		reqB := httptest.NewRequest(http.MethodGet, "/", nil)
		reqB.Header.Set("Authorization", "Bearer "+tokenB)
		env.authenticate(nextB).ServeHTTP(httptest.NewRecorder(), reqB)

		require.NotNil(t, nextA.store)
		require.NotNil(t, nextB.store)
		assert.NotSame(t, nextA.store, nextB.store)
	})

	t.Run("Без токена", func(t *testing.T) {
		next := &captureHandler{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		env.authenticate(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("Мусорный токен", func(t *testing.T) {
		next := &captureHandler{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer kein.jwt.token")
		rec := httptest.NewRecorder()
		env.authenticate(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("Токен удаленной учетной записи отклоняется", func(t *testing.T) {
		id, token := env.issueToken(t, "ehemalig", false)
		_, err := env.registry.Resolve("ehemalig")
		require.NoError(t, err)

		// Хранилище заархивировано, запись удалена - токен еще не истек
		archived, err := env.registry.Archive("ehemalig")
		require.NoError(t, err)
		require.NotEmpty(t, archived)
		require.NoError(t, env.userRepo.DeleteUser(context.Background(), id))

		next := &captureHandler{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.authenticate(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)

		// Файл хранилища не воссоздан разрешением по чужому токену
		_, err = os.Stat(filepath.Join(env.dataDir, "bienen_ehemalig.db"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestRequireAdmin(t *testing.T) {
	env := newAuthEnv(t)

	t.Run("Администратор проходит", func(t *testing.T) {
		_, token := env.issueToken(t, "chef", true)
		next := &captureHandler{}

		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.authenticate(middleware.RequireAdmin(next)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, next.called)
	})

	t.Run("Обычный пользователь получает отказ", func(t *testing.T) {
		_, token := env.issueToken(t, "imker", false)
		next := &captureHandler{}

		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.authenticate(middleware.RequireAdmin(next)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, next.called)
	})
}
