package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/beehivetracker/server/internal/repository"
	"github.com/beehivetracker/server/internal/services"
)

// Тип для ключей контекста.
type contextKey string

// Ключи для данных запроса в контексте.
const (
	claimsKey contextKey = "authClaims"
	storeKey  contextKey = "accountStore"
)

// AuthCookieName - имя cookie с токеном (для запросов без заголовка Authorization,
// например загрузки фотографий через <img>).
const AuthCookieName = "auth_token"

// Authenticator проверяет JWT и привязывает хранилище учетной записи к запросу.
//
// Разрешенное хранилище передается дальше ЧЕРЕЗ КОНТЕКСТ ЗАПРОСА: активное
// хранилище - не общее состояние процесса, поэтому параллельные запросы
// разных учетных записей не мешают друг другу.
//
// Существование учетной записи проверяется на каждом запросе: токен живет
// до 24 часов, а удаление учетной записи должно действовать немедленно,
// иначе разрешение хранилища воссоздаст только что заархивированный файл.
func Authenticator(secret []byte, users repository.UserRepository, registry *repository.StoreRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				log.Println("[AuthMiddleware] Токен аутентификации отсутствует")
				http.Error(w, "Требуется аутентификация", http.StatusUnauthorized)
				return
			}

			claims, err := services.ParseToken(secret, tokenString)
			if err != nil {
				log.Printf("[AuthMiddleware] Ошибка валидации токена: %v", err)
				http.Error(w, "Невалидный токен", http.StatusUnauthorized)
				return
			}

			if _, err = users.GetUserByUsername(r.Context(), claims.Username); err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					log.Printf("[AuthMiddleware] Токен удаленной учетной записи '%s'", claims.Username)
					http.Error(w, "Требуется аутентификация", http.StatusUnauthorized)
					return
				}
				log.Printf("[AuthMiddleware] Ошибка проверки учетной записи '%s': %v", claims.Username, err)
				http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
				return
			}

			// Разрешаем хранилище учетной записи (кэшируется в реестре)
			store, err := registry.Resolve(claims.Username)
			if err != nil {
				log.Printf("[AuthMiddleware] Ошибка разрешения хранилища для '%s': %v", claims.Username, err)
				http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, storeKey, store)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin пропускает только администраторов. Вешается после Authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaimsFromContext(r.Context())
		if !ok || !claims.IsAdmin {
			log.Printf("[AuthMiddleware] Отказ в административном доступе")
			http.Error(w, "Доступ запрещен", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken достает токен из заголовка Authorization или cookie.
// Испорченный заголовок не мешает запросу пройти по cookie.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) == 2 && strings.EqualFold(headerParts[0], "bearer") {
			return headerParts[1]
		}
	}

	cookie, err := r.Cookie(AuthCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetClaimsFromContext извлекает данные аутентификации из контекста запроса.
func GetClaimsFromContext(ctx context.Context) (*services.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*services.Claims)
	return claims, ok
}

// GetStoreFromContext извлекает привязанное к запросу хранилище учетной записи.
func GetStoreFromContext(ctx context.Context) (*repository.Store, bool) {
	store, ok := ctx.Value(storeKey).(*repository.Store)
	return store, ok
}
