package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/beehivetracker/server/internal/repository"
)

// AuthService определяет интерфейс для сервиса аутентификации.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error) // Возвращает JWT токен или ошибку
}

// Константы политики блокировки и JWT.
const (
	maxFailedAttempts = 3                // Порог неудачных попыток до блокировки
	lockoutDuration   = 30 * time.Minute // Длительность блокировки
	tokenTTL          = 24 * time.Hour   // Время жизни токена
	tokenIssuer       = "beehivetracker-server"
)

// Claims - пользовательские данные в JWT.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// ParseToken разбирает и валидирует JWT, возвращая claims.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Убеждаемся, что метод подписи - HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора токена: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("невалидный токен")
	}
	return claims, nil
}

// Убедимся, что authService удовлетворяет интерфейсу AuthService.
var _ AuthService = (*authService)(nil)

type authService struct {
	userRepo repository.UserRepository
	secret   []byte
	now      func() time.Time // Подменяется в тестах
}

// NewAuthService создает новый экземпляр сервиса аутентификации.
func NewAuthService(userRepo repository.UserRepository, secret []byte) AuthService {
	return &authService{userRepo: userRepo, secret: secret, now: time.Now}
}

// Login аутентифицирует пользователя и возвращает JWT токен.
//
// Политика блокировки: после трех подряд неудачных проверок пароля учетная
// запись блокируется на 30 минут; пока блокировка активна, вход отклоняется
// даже с верным паролем. Изменения счетчика фиксируются в хранилище учетных
// записей ДО возврата из метода.
func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("[AuthService] Попытка входа несуществующего пользователя: %s", username)
			// Счетчик не ведем: учетной записи нет
			return "", ErrInvalidCredentials
		}
		log.Printf("[AuthService] Ошибка репозитория при поиске '%s': %v", username, err)
		return "", errors.New("внутренняя ошибка сервера при поиске пользователя")
	}

	now := s.now()

	// Активная блокировка отклоняет вход до проверки пароля
	if user.LockedUntil.Valid && now.Unix() < user.LockedUntil.Int64 {
		remaining := user.LockedUntil.Int64 - now.Unix()
		log.Printf("[AuthService] Вход отклонен: учетная запись '%s' заблокирована еще %d сек.", username, remaining)
		return "", &AccountLockedError{RemainingSeconds: remaining}
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		// Неверный пароль: увеличиваем счетчик и при достижении порога блокируем
		attempts := user.FailedLoginAttempts + 1
		lockedUntil := sql.NullInt64{}
		if attempts >= maxFailedAttempts {
			lockedUntil = sql.NullInt64{Int64: now.Add(lockoutDuration).Unix(), Valid: true}
			log.Printf("[AuthService] Учетная запись '%s' заблокирована на %s после %d неудачных попыток",
				username, lockoutDuration, attempts)
		}
		if updErr := s.userRepo.UpdateLockState(ctx, user.ID, attempts, lockedUntil); updErr != nil {
			log.Printf("[AuthService] Ошибка фиксации неудачной попытки для '%s': %v", username, updErr)
			return "", errors.New("внутренняя ошибка сервера при учете попытки входа")
		}

		log.Printf("[AuthService] Неверный пароль для пользователя: %s (попытка %d)", username, attempts)
		return "", ErrInvalidCredentials
	}

	// Успешный вход всегда сбрасывает счетчик и снимает блокировку
	if user.FailedLoginAttempts != 0 || user.LockedUntil.Valid {
		if updErr := s.userRepo.UpdateLockState(ctx, user.ID, 0, sql.NullInt64{}); updErr != nil {
			log.Printf("[AuthService] Ошибка сброса счетчика попыток для '%s': %v", username, updErr)
			return "", errors.New("внутренняя ошибка сервера при сбросе счетчика попыток")
		}
	}

	token, err := s.generateJWT(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		log.Printf("[AuthService] Ошибка генерации JWT для '%s': %v", username, err)
		return "", errors.New("внутренняя ошибка сервера при генерации токена")
	}

	log.Printf("[AuthService] Пользователь '%s' успешно аутентифицирован", username)
	return token, nil
}

// generateJWT создает и подписывает JWT токен для пользователя.
func (s *authService) generateJWT(userID int64, username string, isAdmin bool) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи JWT: %w", err)
	}

	return signedToken, nil
}

// AccountLockedError сообщает об активной блокировке и оставшихся секундах.
type AccountLockedError struct {
	RemainingSeconds int64
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("учетная запись временно заблокирована, повторите через %d сек.", e.RemainingSeconds)
}

// Is позволяет проверять блокировку через errors.Is(err, ErrAccountLocked).
func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// Кастомные ошибки сервиса.
var (
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	ErrAccountLocked      = errors.New("учетная запись временно заблокирована")
)
