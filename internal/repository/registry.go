package repository

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// usernamePattern ограничивает имена, из которых выводится путь к файлу хранилища.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// ValidUsername проверяет, что имя пользователя допустимо как часть пути к файлу.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// StoreRegistry отображает имя учетной записи на ее изолированное хранилище.
// Открытые хранилища кэшируются по имени: повторное разрешение того же имени
// возвращает тот же экземпляр и не переоткрывает файл. Привязка хранилища к
// запросу выполняется через контекст (middleware), а не через общее
// изменяемое состояние процесса.
type StoreRegistry struct {
	mu            sync.Mutex
	dataDir       string
	bootstrapUser string
	stores        map[string]*Store
}

// NewStoreRegistry создает реестр хранилищ.
// bootstrapUser - выделенная учетная запись, за которой закреплено
// историческое хранилище bienen.db.
func NewStoreRegistry(dataDir, bootstrapUser string) *StoreRegistry {
	return &StoreRegistry{
		dataDir:       dataDir,
		bootstrapUser: bootstrapUser,
		stores:        make(map[string]*Store),
	}
}

// StorePath детерминированно выводит путь к файлу хранилища из имени учетной записи.
func (r *StoreRegistry) StorePath(username string) string {
	if username == r.bootstrapUser {
		// Историческое хранилище начальной учетной записи
		return filepath.Join(r.dataDir, "bienen.db")
	}
	return filepath.Join(r.dataDir, fmt.Sprintf("bienen_%s.db", username))
}

// Resolve возвращает хранилище для учетной записи, открывая его при первом обращении.
func (r *StoreRegistry) Resolve(username string) (*Store, error) {
	if !ValidUsername(username) {
		return nil, ErrInvalidStoreName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[username]; ok {
		return store, nil
	}

	path := r.StorePath(username)
	log.Printf("[Registry] Открытие хранилища для '%s': %s", username, path)

	store, err := OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия хранилища для '%s': %w", username, err)
	}

	r.stores[username] = store
	return store, nil
}

// Release закрывает хранилище учетной записи и убирает его из кэша.
// Отсутствие открытого хранилища ошибкой не считается.
func (r *StoreRegistry) Release(username string) error {
	r.mu.Lock()
	store, ok := r.stores[username]
	delete(r.stores, username)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия хранилища '%s': %w", username, err)
	}

	log.Printf("[Registry] Хранилище '%s' освобождено", username)
	return nil
}

// Archive освобождает хранилище и переименовывает его файл с архивным суффиксом.
// Данные никогда не удаляются: удаление учетной записи лишь убирает хранилище
// из активного набора. Возвращает путь к архиву.
func (r *StoreRegistry) Archive(username string) (string, error) {
	if err := r.Release(username); err != nil {
		return "", err
	}

	path := r.StorePath(username)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		// Хранилище так и не было создано - архивировать нечего
		return "", nil
	}

	archived := fmt.Sprintf("%s_archiviert_%s.db",
		path[:len(path)-len(filepath.Ext(path))], time.Now().Format("20060102_150405"))
	if err := os.Rename(path, archived); err != nil {
		return "", fmt.Errorf("ошибка архивирования хранилища '%s': %w", username, err)
	}

	log.Printf("[Registry] Хранилище '%s' заархивировано: %s", username, archived)
	return archived, nil
}

// Close закрывает все открытые хранилища (вызывается при остановке сервера).
func (r *StoreRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for username, store := range r.stores {
		if err := store.Close(); err != nil {
			log.Printf("[Registry] Ошибка закрытия хранилища '%s': %v", username, err)
		}
	}
	r.stores = make(map[string]*Store)
}

// ErrInvalidStoreName возвращается для имен, из которых нельзя вывести путь к хранилищу.
var ErrInvalidStoreName = errors.New("недопустимое имя учетной записи")
