package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage реализует FileStorage поверх локальной файловой системы.
// Файлы лежат в {root}/{YYYYMMDD}/{filename}.
type LocalStorage struct {
	root string
}

// Убедимся, что LocalStorage удовлетворяет интерфейсу FileStorage.
var _ FileStorage = (*LocalStorage)(nil)

// NewLocalStorage создает локальное хранилище с корнем root (создается при необходимости).
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания корневого каталога '%s': %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

// path строит путь к файлу, отвергая компоненты с разделителями пути.
func (l *LocalStorage) path(dir, filename string) (string, error) {
	if strings.ContainsAny(dir, `/\`) || strings.ContainsAny(filename, `/\`) ||
		dir == "" || filename == "" || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("недопустимое имя файла или каталога: %q/%q", dir, filename)
	}
	return filepath.Join(l.root, dir, filename), nil
}

// Save сохраняет файл, создавая каталог дня по требованию.
func (l *LocalStorage) Save(ctx context.Context, dir, filename string, reader io.Reader, _ int64, _ string) error {
	path, err := l.path(dir, filename)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога дня: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ошибка создания файла '%s': %w", path, err)
	}

	if _, err = io.Copy(f, reader); err != nil {
		closeErr := f.Close()
		if closeErr != nil {
			log.Printf("[LocalStorage] Ошибка закрытия файла после неудачной записи: %v", closeErr)
		}
		return fmt.Errorf("ошибка записи файла '%s': %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия файла '%s': %w", path, err)
	}

	return nil
}

// Open открывает файл для чтения и возвращает его размер.
func (l *LocalStorage) Open(_ context.Context, dir, filename string) (io.ReadCloser, int64, error) {
	path, err := l.path(dir, filename)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, ErrObjectNotFound
		}
		return nil, 0, fmt.Errorf("ошибка открытия файла '%s': %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		closeErr := f.Close()
		if closeErr != nil {
			log.Printf("[LocalStorage] Ошибка закрытия файла после неудачного Stat: %v", closeErr)
		}
		return nil, 0, fmt.Errorf("ошибка получения размера файла '%s': %w", path, err)
	}

	return f, info.Size(), nil
}

// Remove удаляет файл.
func (l *LocalStorage) Remove(_ context.Context, dir, filename string) error {
	path, err := l.path(dir, filename)
	if err != nil {
		return err
	}

	if err = os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("ошибка удаления файла '%s': %w", path, err)
	}
	return nil
}

// RemoveDirIfEmpty убирает опустевший каталог дня. Непустой каталог остается.
func (l *LocalStorage) RemoveDirIfEmpty(_ context.Context, dir string) error {
	if strings.ContainsAny(dir, `/\`) || dir == "" {
		return fmt.Errorf("недопустимое имя каталога: %q", dir)
	}
	path := filepath.Join(l.root, dir)

	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("ошибка чтения каталога '%s': %w", path, err)
	}
	if len(entries) > 0 {
		return nil
	}

	if err = os.Remove(path); err != nil {
		return fmt.Errorf("ошибка удаления каталога '%s': %w", path, err)
	}
	return nil
}
