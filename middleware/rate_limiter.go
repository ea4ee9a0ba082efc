package middleware

import (
	"net/http"
	"sync"
	"time"

	"snapfix/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limiterStore maps client IPs to their token buckets. Entries are
// never evicted; the map is bounded by the distinct-IP population.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var store = &limiterStore{limiters: make(map[string]*rate.Limiter)}

func (s *limiterStore) limiterFor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limiter, ok := s.limiters[ip]; ok {
		return limiter
	}
	perMin := config.AppConfig.MaxRequestsPerMin
	if perMin <= 0 {
		perMin = 200
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin)
	s.limiters[ip] = limiter
	return limiter
}

// RateLimitMiddleware throttles requests per client IP. The checkout
// and payment-return endpoints sit behind this too, so the limit must
// stay well above a single client's legitimate burst.
func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := getClientIP(c)
		if !store.limiterFor(ip).Allow() {
			zap.L().Warn("rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, slow down"})
			return
		}
		c.Next()
	}
}
