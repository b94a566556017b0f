// Package storage отвечает за файлы фотографий осмотров: валидацию,
// именование и физическое размещение (локальная файловая система или
// S3-совместимое хранилище MinIO).
package storage

import (
	"context"
	"errors"
	"io"
)

// FileStorage определяет интерфейс для взаимодействия с хранилищем файлов.
// dir - каталог дня в формате YYYYMMDD, filename - сгенерированное имя файла.
type FileStorage interface {
	Save(ctx context.Context, dir, filename string, reader io.Reader, size int64, contentType string) error
	Open(ctx context.Context, dir, filename string) (io.ReadCloser, int64, error)
	Remove(ctx context.Context, dir, filename string) error
	// RemoveDirIfEmpty убирает опустевший каталог дня; непустой каталог не трогает.
	RemoveDirIfEmpty(ctx context.Context, dir string) error
}

// Кастомные ошибки хранилища файлов.
var (
	ErrObjectNotFound = errors.New("файл не найден в хранилище")
)
