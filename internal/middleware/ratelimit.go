package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chavepixclub/backend/internal/handler"
	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per key. Buckets live in Redis when a
// client is configured, and in process memory otherwise or while Redis errors.
type RateLimiter struct {
	redis   *redis_rate.Limiter
	local   *localLimiter
	limit   redis_rate.Limit
	keyFunc func(*http.Request) string
	log     *zap.Logger
}

// NewRateLimiter creates a limiter allowing limit.Rate requests per limit.Period
// with the given burst. rdb may be nil.
func NewRateLimiter(rdb *redis.Client, limit redis_rate.Limit, keyFunc func(*http.Request) string, log *zap.Logger) *RateLimiter {
	if keyFunc == nil {
		keyFunc = KeyByIP
	}
	rl := &RateLimiter{
		local:   newLocalLimiter(),
		limit:   limit,
		keyFunc: keyFunc,
		log:     log,
	}
	if rdb != nil {
		rl.redis = redis_rate.NewLimiter(rdb)
	}
	return rl
}

// Per builds a limit of n requests per period.
func Per(n, burst int, period time.Duration) redis_rate.Limit {
	if period <= 0 {
		period = time.Minute
	}
	return redis_rate.Limit{Rate: n, Burst: burst, Period: period}
}

// PerMinute builds a limit of n requests per minute.
func PerMinute(n, burst int) redis_rate.Limit {
	return Per(n, burst, time.Minute)
}

// Middleware returns an HTTP middleware that rate limits by the key function.
func (rl *RateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := rl.allow(r.Context(), rl.keyFunc(r))
			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				handler.JSON(w, http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded, try again later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, time.Duration) {
	if rl.redis != nil {
		res, err := rl.redis.Allow(ctx, key, rl.limit)
		if err == nil {
			return res.Allowed > 0, res.RetryAfter
		}
		rl.log.Warn("redis rate limiter unavailable, using local buckets", zap.Error(err))
	}
	return rl.local.allow(key, rl.limit)
}

// Close stops the local bucket cleanup loop.
func (rl *RateLimiter) Close() {
	rl.local.close()
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	done     chan struct{}
	once     sync.Once
}

func newLocalLimiter() *localLimiter {
	l := &localLimiter{
		visitors: make(map[string]*visitor),
		done:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) (bool, time.Duration) {
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		every := rate.Every(limit.Period / time.Duration(max(limit.Rate, 1)))
		v = &visitor{limiter: rate.NewLimiter(every, max(limit.Burst, 1))}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()

	res := v.limiter.Reserve()
	if !res.OK() {
		return false, limit.Period
	}
	if d := res.Delay(); d > 0 {
		res.Cancel()
		return false, d
	}
	return true, 0
}

func (l *localLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			for key, v := range l.visitors {
				if time.Since(v.lastSeen) > 3*time.Minute {
					delete(l.visitors, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *localLimiter) close() {
	l.once.Do(func() { close(l.done) })
}

// KeyByIP keys buckets on the client IP, preferring proxy headers if available.
func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + extractClientIP(r)
}

// KeyByUser keys buckets on the authenticated user, falling back to the IP.
func KeyByUser(r *http.Request) string {
	if uid := UserID(r.Context()); uid != "" {
		return "ratelimit:user:" + uid
	}
	return KeyByIP(r)
}

func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		return strings.TrimSpace(parts[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
