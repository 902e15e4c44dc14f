package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter initializes the shared Redis client used by the
// transport-level limiters. With no addr, or on ping failure, the
// client stays nil and the middleware fails open: availability over
// strictness at this layer. The fail-closed per-action limiter inside
// the engine is the actual anti-cheat authority.
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		return
	}
	redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient = nil
	}
}

// RedisRateLimit is a fixed-window per-IP limiter using INCR/EXPIRE.
// Key format: rl:<window_seconds>:<ip>.
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		if !incrAllow(c, key, maxRequests, window, c.FullPath()) {
			return
		}
		c.Next()
	}
}

// UserRateLimit limits a named action per authenticated user. Requires
// the JWT middleware to have run first.
func UserRateLimit(action string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userID, ok := userIDVal.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}

		key := "url:" + action + ":" + strconv.FormatInt(userID, 10)
		if !incrAllow(c, key, maxRequests, window, action) {
			return
		}
		c.Next()
	}
}

func incrAllow(c *gin.Context, key string, maxRequests int, window time.Duration, label string) bool {
	ctx := context.Background()

	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		// redis outage: allow, but flag it for the client and metrics
		c.Header("X-RateLimit-Error", "redis-error")
		return true
	}
	if val == 1 {
		redisClient.Expire(ctx, key, window)
	}

	if val > int64(maxRequests) {
		RLBlocked.WithLabelValues(label).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"retry_after": int(window.Seconds()),
		})
		return false
	}
	RLRequests.WithLabelValues(label).Inc()
	return true
}
