// Package middlewarectx содержит HTTP middleware сервиса: ограничение частоты
// запросов и CORS для фронтенда.
package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/numisgallery/mercury-webhooks/internal/http/response"
)

// ipLimiters хранит по лимитеру на исходный IP. Записи не вычищаются:
// их число ограничено количеством уникальных адресов за время жизни процесса.
type ipLimiters struct {
	mu      sync.Mutex
	entries map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.entries[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.entries[ip] = limiter
	}
	return limiter
}

// RateLimitMiddleware ограничивает частоту запросов по исходному IP:
// 100 запросов в минуту с возможностью короткого всплеска. Это внешний
// предохранитель от злоупотреблений, а не часть логики реконсиляции.
func RateLimitMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	limiters := &ipLimiters{
		entries: make(map[string]*rate.Limiter),
		limit:   rate.Limit(100.0 / 60.0),
		burst:   20,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !limiters.get(ip).Allow() {
				log.Warn("too many requests", slog.String("ip", ip))
				w.WriteHeader(http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
