package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/harunzafer/fastsvelte/pkg/httputil"
	"github.com/harunzafer/fastsvelte/pkg/logger"
)

// visitor tracks a rate limiter per client IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorStore holds per-IP limiters. Entries idle for longer than ttl are
// evicted lazily, at most once per ttl.
type visitorStore struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rps       rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newVisitorStore(rps float64, burst int, ttl time.Duration) *visitorStore {
	return &visitorStore{
		visitors:  make(map[string]*visitor),
		rps:       rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *visitorStore) allow(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.ttl {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.ttl {
				delete(s.visitors, k)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (s *visitorStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimit returns middleware that enforces a per-IP token bucket.
// Requests over the limit get 429 RATE_LIMITED.
func RateLimit(rps float64, burst int, l *slog.Logger) func(http.Handler) http.Handler {
	store := newVisitorStore(rps, burst, 3*time.Minute)
	return rateLimit(store, l)
}

func rateLimit(store *visitorStore, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !store.allow(ip) {
				l.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("client_ip", ip),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      "RATE_LIMITED",
						Message:   "too many requests",
						RequestID: logger.CorrelationIDFromContext(r.Context()),
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
