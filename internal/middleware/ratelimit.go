package middleware

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginRateLimiter ограничивает частоту попыток входа по адресу клиента.
// Лимитеры хранятся в памяти процесса; внешнее хранилище не требуется,
// так как сервер работает в один процесс.
type LoginRateLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	limit       rate.Limit
	burst       int
	ttl         time.Duration
	lastCleanup time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginRateLimiter создает лимитер: requests запросов за window с каждого адреса.
func NewLoginRateLimiter(requests int, window time.Duration) *LoginRateLimiter {
	return &LoginRateLimiter{
		visitors:    map[string]*visitor{},
		limit:       rate.Every(window / time.Duration(requests)),
		burst:       requests,
		ttl:         3 * window,
		lastCleanup: time.Now(),
	}
}

// Limit - middleware, отклоняющий избыточные запросы кодом 429.
func (l *LoginRateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientAddr(r)

		if !l.allow(key) {
			log.Printf("[RateLimit] Превышен лимит попыток входа с адреса %s", key)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Слишком много попыток входа, повторите позже", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow проверяет лимит для адреса, попутно вычищая устаревшие записи.
func (l *LoginRateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastCleanup) > l.ttl {
		for addr, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.visitors, addr)
			}
		}
		l.lastCleanup = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.Allow()
}

// clientAddr возвращает адрес клиента без порта.
// Middleware chi RealIP уже подставил X-Forwarded-For/X-Real-IP в RemoteAddr.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
