package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client may stay idle before its limiter
// is evicted.
const limiterIdleTTL = 10 * time.Minute

// RateLimiter enforces a per-client request rate, keyed by IP. Idle
// clients are evicted so the limiter map stays bounded.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rate    rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
// rate: requests per second
// burst: max burst size
func NewRateLimiter(r float64, b int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		rate:    rate.Limit(r),
		burst:   b,
		idleTTL: limiterIdleTTL,
		now:     time.Now,
	}
}

// getLimiter returns the rate limiter for the given IP, creating one on
// first sight.
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.clients[ip]
	if !exists {
		rl.evictIdle(now)
		client = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[ip] = client
	}
	client.lastSeen = now

	return client.limiter
}

// evictIdle drops clients not seen within the idle TTL. Called with
// rl.mu held, only on the new-client path.
func (rl *RateLimiter) evictIdle(now time.Time) {
	for ip, client := range rl.clients {
		if now.Sub(client.lastSeen) > rl.idleTTL {
			delete(rl.clients, ip)
		}
	}
}

// Limit is a middleware that enforces rate limiting per IP
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getIP(r)
		limiter := rl.getLimiter(ip)

		if !limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getIP extracts the client IP from the request
func getIP(r *http.Request) string {
	// Check X-Forwarded-For header (if behind proxy)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return forwarded
	}

	// Check X-Real-IP header
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr
	return r.RemoteAddr
}
