package api

import (
	"context"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/wonny/clv/backend/pkg/logger"
	"github.com/wonny/clv/backend/pkg/redis"
)

// Limiter decides whether a client may make another request
type Limiter interface {
	Allow(ctx context.Context, clientKey string) bool
}

// RedisLimiter shares the per-client limit across API instances
type RedisLimiter struct {
	limiter   *redis.RateLimiter
	perSecond int
	logger    *logger.Logger
}

// NewRedisLimiter creates a Redis-backed limiter
func NewRedisLimiter(limiter *redis.RateLimiter, perSecond int, log *logger.Logger) *RedisLimiter {
	return &RedisLimiter{limiter: limiter, perSecond: perSecond, logger: log}
}

// Allow fails open when Redis is unreachable
func (l *RedisLimiter) Allow(ctx context.Context, clientKey string) bool {
	allowed, _, err := l.limiter.Allow(ctx, redis.APIRateLimit(clientKey, l.perSecond))
	if err != nil {
		l.logger.WithError(err).Warn("Rate limit check failed")
		return true
	}
	return allowed
}

// LocalLimiter keeps one token bucket per client in memory
type LocalLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	perSecond int
}

// NewLocalLimiter creates an in-process limiter (burst = perSecond)
func NewLocalLimiter(perSecond int) *LocalLimiter {
	return &LocalLimiter{
		buckets:   make(map[string]*rate.Limiter),
		perSecond: perSecond,
	}
}

// Allow consumes one token from the client's bucket
func (l *LocalLimiter) Allow(_ context.Context, clientKey string) bool {
	l.mu.Lock()
	b, ok := l.buckets[clientKey]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.perSecond), l.perSecond)
		l.buckets[clientKey] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

// NewLimiter picks the Redis limiter when Redis is enabled, the local one
// otherwise. perSecond <= 0 disables limiting (nil).
func NewLimiter(client *redis.Client, perSecond int, log *logger.Logger) Limiter {
	if perSecond <= 0 {
		return nil
	}
	if client != nil && client.Enabled() {
		return NewRedisLimiter(redis.NewRateLimiter(client), perSecond, log)
	}
	return NewLocalLimiter(perSecond)
}

// rateLimitMiddleware rejects requests over the client's limit with 429
func rateLimitMiddleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), clientKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
