package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage реализует FileStorage для S3-совместимого хранилища MinIO.
// Ключ объекта: {YYYYMMDD}/{filename}; понятия каталога у объектного
// хранилища нет, поэтому RemoveDirIfEmpty здесь no-op.
type MinioStorage struct {
	client     *minio.Client
	bucketName string
}

// Убедимся, что MinioStorage удовлетворяет интерфейсу FileStorage.
var _ FileStorage = (*MinioStorage)(nil)

// MinioConfig содержит параметры для подключения к MinIO.
type MinioConfig struct {
	Endpoint        string // Адрес MinIO (например, "localhost:9000")
	AccessKeyID     string // Логин
	SecretAccessKey string // Пароль
	UseSSL          bool   // Использовать SSL (обычно false для локальной разработки)
	BucketName      string // Имя бакета для хранения фотографий
	Region          string // Регион (не обязательно для MinIO)
}

// NewMinioStorage создает клиент MinIO и проверяет/создает бакет.
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	log.Printf("Инициализация клиента MinIO для эндпоинта %s...", cfg.Endpoint)

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	// Проверка существования бакета и создание при необходимости
	ctx := context.Background()
	exists, err := minioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки существования бакета '%s': %w", cfg.BucketName, err)
	}
	if !exists {
		log.Printf("Бакет '%s' не найден, попытка создания...", cfg.BucketName)
		err = minioClient.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("ошибка создания бакета '%s': %w", cfg.BucketName, err)
		}
		log.Printf("Бакет '%s' успешно создан.", cfg.BucketName)
	}

	log.Printf("Клиент MinIO успешно инициализирован для бакета '%s'.", cfg.BucketName)
	return &MinioStorage{
		client:     minioClient,
		bucketName: cfg.BucketName,
	}, nil
}

func (m *MinioStorage) objectKey(dir, filename string) string {
	return dir + "/" + filename
}

// Save загружает файл в MinIO.
func (m *MinioStorage) Save(ctx context.Context, dir, filename string, reader io.Reader, size int64, contentType string) error {
	key := m.objectKey(dir, filename)

	opts := minio.PutObjectOptions{ContentType: contentType}
	uploadInfo, err := m.client.PutObject(ctx, m.bucketName, key, reader, size, opts)
	if err != nil {
		log.Printf("[Minio] Ошибка загрузки файла '%s': %v", key, err)
		return fmt.Errorf("ошибка загрузки файла в MinIO: %w", err)
	}

	log.Printf("[Minio] Файл '%s' загружен, размер: %d, ETag: %s", key, uploadInfo.Size, uploadInfo.ETag)
	return nil
}

// Open скачивает файл из MinIO.
// Возвращает io.ReadCloser, который нужно закрыть после использования.
func (m *MinioStorage) Open(ctx context.Context, dir, filename string) (io.ReadCloser, int64, error) {
	key := m.objectKey(dir, filename)

	object, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения файла из MinIO: %w", err)
	}

	// GetObject ленивый: факт отсутствия объекта выясняется при Stat
	stat, err := object.Stat()
	if err != nil {
		closeErr := object.Close()
		if closeErr != nil {
			log.Printf("[Minio] Ошибка закрытия объекта после неудачного Stat: %v", closeErr)
		}
		var minioErr minio.ErrorResponse
		if errors.As(err, &minioErr) && minioErr.Code == "NoSuchKey" {
			return nil, 0, ErrObjectNotFound
		}
		return nil, 0, fmt.Errorf("ошибка получения метаданных из MinIO: %w", err)
	}

	return object, stat.Size, nil
}

// Remove удаляет файл из MinIO.
func (m *MinioStorage) Remove(ctx context.Context, dir, filename string) error {
	key := m.objectKey(dir, filename)

	if err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		log.Printf("[Minio] Ошибка удаления файла '%s': %v", key, err)
		return fmt.Errorf("ошибка удаления файла из MinIO: %w", err)
	}
	return nil
}

// RemoveDirIfEmpty ничего не делает: у объектного хранилища нет каталогов.
func (m *MinioStorage) RemoveDirIfEmpty(_ context.Context, _ string) error {
	return nil
}
