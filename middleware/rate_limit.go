package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/nohand/config"
	"github.com/cppla/nohand/utils"
)

const limiterIdleTTL = 5 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per client IP for a single middleware instance.
type limiterSet struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*clientLimiter
	swept   time.Time
}

func newLimiterSet(perMinute int) *limiterSet {
	perMinute = max(perMinute, 1)
	return &limiterSet{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
		clients: map[string]*clientLimiter{},
	}
}

// allow takes a token for ip, evicting idle clients at most once per idle period.
func (s *limiterSet) allow(ip string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.swept) > limiterIdleTTL {
		for k, c := range s.clients {
			if now.Sub(c.lastSeen) > limiterIdleTTL {
				delete(s.clients, k)
			}
		}
		s.swept = now
	}

	c, ok := s.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// RateLimitMiddleware limits each client IP to the configured requests per minute.
func RateLimitMiddleware() gin.HandlerFunc {
	return RateLimitPerMinute(config.Get().RateLimitPerMinute)
}

// RateLimitPerMinute limits each client IP to perMinute requests with a burst of half that.
// Every call owns its own buckets.
func RateLimitPerMinute(perMinute int) gin.HandlerFunc {
	set := newLimiterSet(perMinute)
	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		if !set.allow(ip, time.Now()) {
			utils.L().Debugw("rate limited", "ip", ip, "path", ctx.Request.URL.Path)
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
