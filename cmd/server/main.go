package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/beehivetracker/server/internal/handlers"
	appmiddleware "github.com/beehivetracker/server/internal/middleware"
	"github.com/beehivetracker/server/internal/repository"
	"github.com/beehivetracker/server/internal/services"
	"github.com/beehivetracker/server/internal/storage"
)

const (
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second // Загрузка фотографий может быть небыстрой
	defaultIdleTimeout  = 60 * time.Second
	shutdownTimeout     = 10 * time.Second

	defaultServerPort = "8080"
	envServerPort     = "SERVER_PORT"

	// Каталоги данных: файлы SQLite и загруженные фотографии.
	envDataDir        = "DATA_DIR"
	envUploadsDir     = "UPLOADS_DIR"
	defaultDataDir    = "./data"
	defaultUploadsDir = "./uploads"

	// Секрет подписи JWT обязателен, значения по умолчанию нет.
	envJWTSecret = "JWT_SECRET" //nolint:gosec // Это имя переменной окружения

	// Начальная административная учетная запись.
	envAdminUser        = "ADMIN_USER"
	envAdminPassword    = "ADMIN_PASSWORD"
	defaultAdminUser    = "admin"
	defaultAdminPass    = "admin"

	// Бэкенд файлового хранилища: local (по умолчанию) или minio.
	envStorageBackend = "STORAGE_BACKEND"
	backendLocal      = "local"
	backendMinio      = "minio"

	// Переменные окружения для MinIO (используются при STORAGE_BACKEND=minio).
	envMinioEndpoint     = "MINIO_ENDPOINT"
	envMinioUser         = "MINIO_USER"
	envMinioPassword     = "MINIO_PASSWORD"
	envMinioBucket       = "MINIO_BUCKET"
	envMinioUseSSL       = "MINIO_USE_SSL"
	defaultMinioEndpoint = "localhost:9000"
	defaultMinioUser     = "minioadmin"
	defaultMinioPassword = "minioadmin"
	defaultMinioBucket   = "beehive-uploads"

	// Лимит попыток входа с одного адреса.
	loginRateRequests = 10
	loginRateWindow   = time.Minute
)

// uploadsSubdir - подкаталог фотографий осмотров внутри каталога загрузок.
const uploadsSubdir = "inspections"

// dependencies - инициализированные зависимости сервера.
type dependencies struct {
	accountsDB *sqlx.DB
	registry   *repository.StoreRegistry
	userRepo   repository.UserRepository
	secret     []byte

	authHandler       *handlers.AuthHandler
	colonyHandler     *handlers.ColonyHandler
	inspectionHandler *handlers.InspectionHandler
	imageHandler      *handlers.ImageHandler
	adminHandler      *handlers.AdminHandler
	healthHandler     *handlers.HealthHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск сервера учета пасеки...")

	deps, err := setupDependencies()
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	defer func() {
		deps.registry.Close()
		if closeErr := deps.accountsDB.Close(); closeErr != nil {
			log.Printf("Ошибка закрытия хранилища учетных записей: %v", closeErr)
		}
	}()

	r := setupRouter(deps)

	port := getEnv(envServerPort, defaultServerPort)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	// Останавливаемся аккуратно по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP-сервер слушает порт %s...", port)
		if srvErr := server.ListenAndServe(); srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ошибка запуска HTTP-сервера: %w", srvErr)
		}
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
		log.Println("Получен сигнал остановки, завершаем работу...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP-сервера: %w", err)
	}

	log.Println("Сервер остановлен.")
	return nil
}

// setupDependencies инициализирует и возвращает все зависимости сервера.
func setupDependencies() (*dependencies, error) {
	secret := os.Getenv(envJWTSecret)
	if secret == "" {
		return nil, fmt.Errorf("не задан секрет подписи токенов (%s)", envJWTSecret)
	}

	dataDir := getEnv(envDataDir, defaultDataDir)
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога данных '%s': %w", dataDir, err)
	}

	// 1. Общее хранилище учетных записей
	accountsDB, err := repository.NewAccountsDB(filepath.Join(dataDir, "users.db"))
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища учетных записей: %w", err)
	}

	// 2. Файловое хранилище фотографий
	fileStorage, err := setupFileStorage()
	if err != nil {
		if closeErr := accountsDB.Close(); closeErr != nil {
			log.Printf("Ошибка закрытия хранилища учетных записей: %v", closeErr)
		}
		return nil, err
	}
	images := storage.NewImageManager(fileStorage)

	// 3. Реестр изолированных хранилищ и репозиторий учетных записей
	adminUser := getEnv(envAdminUser, defaultAdminUser)
	registry := repository.NewStoreRegistry(dataDir, adminUser)
	userRepo := repository.NewUserRepository(accountsDB)

	// 4. Сервисы
	authService := services.NewAuthService(userRepo, []byte(secret))
	adminService := services.NewAdminService(userRepo, registry)
	colonyService := services.NewColonyService(images)
	inspectionService := services.NewInspectionService(images)

	// Начальная административная учетная запись
	adminPassword := getEnv(envAdminPassword, defaultAdminPass)
	if adminPassword == defaultAdminPass {
		log.Printf("ВНИМАНИЕ: используется пароль администратора по умолчанию, задайте %s", envAdminPassword)
	}
	if err = adminService.EnsureBootstrapAdmin(context.Background(), adminUser, adminPassword); err != nil {
		registry.Close()
		if closeErr := accountsDB.Close(); closeErr != nil {
			log.Printf("Ошибка закрытия хранилища учетных записей: %v", closeErr)
		}
		return nil, err
	}

	// 5. Обработчики
	return &dependencies{
		accountsDB:        accountsDB,
		registry:          registry,
		userRepo:          userRepo,
		secret:            []byte(secret),
		authHandler:       handlers.NewAuthHandler(authService),
		colonyHandler:     handlers.NewColonyHandler(colonyService),
		inspectionHandler: handlers.NewInspectionHandler(inspectionService),
		imageHandler:      handlers.NewImageHandler(images),
		adminHandler:      handlers.NewAdminHandler(adminService),
		healthHandler:     handlers.NewHealthHandler(accountsDB),
	}, nil
}

// setupFileStorage выбирает бэкенд файлового хранилища по переменной окружения.
func setupFileStorage() (storage.FileStorage, error) {
	backend := getEnv(envStorageBackend, backendLocal)

	switch backend {
	case backendLocal:
		root := filepath.Join(getEnv(envUploadsDir, defaultUploadsDir), uploadsSubdir)
		local, err := storage.NewLocalStorage(root)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации локального хранилища файлов: %w", err)
		}
		return local, nil

	case backendMinio:
		useSSL, _ := strconv.ParseBool(getEnv(envMinioUseSSL, "false"))
		minioStorage, err := storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:        getEnv(envMinioEndpoint, defaultMinioEndpoint),
			AccessKeyID:     getEnv(envMinioUser, defaultMinioUser),
			SecretAccessKey: getEnv(envMinioPassword, defaultMinioPassword),
			UseSSL:          useSSL,
			BucketName:      getEnv(envMinioBucket, defaultMinioBucket),
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
		}
		return minioStorage, nil

	default:
		return nil, fmt.Errorf("неизвестный бэкенд файлового хранилища: '%s'", backend)
	}
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(deps *dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", deps.healthHandler.Check)

	// Вход ограничен по частоте с одного адреса
	loginLimiter := appmiddleware.NewLoginRateLimiter(loginRateRequests, loginRateWindow)
	r.Group(func(r chi.Router) {
		r.Use(loginLimiter.Limit)
		r.Post("/login", deps.authHandler.Login)
	})

	// Все остальное требует аутентификации; хранилище учетной записи
	// привязывается к каждому запросу через контекст
	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.Authenticator(deps.secret, deps.userRepo, deps.registry))

		r.Get("/logout", deps.authHandler.Logout)

		// Пчелиные семьи
		r.Get("/", deps.colonyHandler.List)
		r.Get("/voelker", deps.colonyHandler.List)
		r.Post("/neues-volk", deps.colonyHandler.Create)
		r.Route("/volk/{id}", func(r chi.Router) {
			r.Get("/", deps.colonyHandler.Detail)
			r.Post("/bearbeiten", deps.colonyHandler.Update)
			r.Post("/status", deps.colonyHandler.UpdateStatus)
			r.Post("/loeschen", deps.colonyHandler.Delete)
		})

		// Осмотры
		r.Get("/inspektionen", deps.inspectionHandler.ListGrouped)
		r.Post("/inspektionen/loeschen", deps.inspectionHandler.BatchDelete)
		r.Post("/neue-inspektion", deps.inspectionHandler.Create)
		r.Post("/batch-inspektion", deps.inspectionHandler.BatchCreate)
		r.Route("/inspektion/{id}", func(r chi.Router) {
			r.Get("/", deps.inspectionHandler.Detail)
			r.Post("/bearbeiten", deps.inspectionHandler.Update)
			r.Post("/loeschen", deps.inspectionHandler.Delete)
		})

		// Фотографии осмотров
		r.Get("/uploads/inspections/{date}/{filename}", deps.imageHandler.Serve)

		// Административные маршруты
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.RequireAdmin)
			r.Get("/admin/users", deps.adminHandler.ListUsers)
			r.Post("/admin/users", deps.adminHandler.CreateUser)
			r.Post("/admin/users/{id}/loeschen", deps.adminHandler.DeleteUser)
			r.Post("/admin/users/{id}/entsperren", deps.adminHandler.UnlockUser)
			r.Post("/admin/users/{id}/passwort", deps.adminHandler.ResetPassword)
		})
	})

	return r
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
