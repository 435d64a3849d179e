package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/teteocan/aurora-admin/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// idle client buckets are dropped after this long
const limiterIdleTTL = 5 * time.Minute

// RateLimiter is a per-client token bucket
type RateLimiter struct {
	perSecond float64
	burst     int
	buckets   *cache.Cache
	mu        sync.Mutex
	logger    *zap.Logger
}

// NewRateLimiter creates a limiter allowing perSecond requests with the given burst per client IP
func NewRateLimiter(perSecond float64, burst int, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		perSecond: perSecond,
		burst:     burst,
		buckets:   cache.New(limiterIdleTTL, time.Minute),
		logger:    logger,
	}
}

// Limit rejects requests over the client's budget with 429
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip == "" {
			ip = "unknown"
		}

		lim := l.limiter(ip)
		if !lim.Allow() {
			l.logger.Warn("request blocked by rate limit",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("client_ip", ip))
			details := map[string]interface{}{
				"limit_per_second": l.perSecond,
				"burst":            l.burst,
			}
			_ = utils.WriteErrorCode(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded", details)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.buckets.Get(ip); ok {
		lim := v.(*rate.Limiter)
		// refresh the idle expiry
		l.buckets.SetDefault(ip, lim)
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(l.perSecond), l.burst)
	l.buckets.SetDefault(ip, lim)
	return lim
}
