package middleware

import (
	"fmt"
	"time"

	"notes_nest/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitMiddleware 基于 Redis 的固定窗口限流，按客户端 IP 计数
// Redis 故障时降级放行，只记日志
func RateLimitMiddleware(rdb *redis.Client, action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate:limit:%s:%s", action, c.ClientIP())
		allowed, err := utils.AllowRequest(c, rdb, key, limit, window)
		if err != nil {
			zap.L().Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			utils.TooManyRequests(c, "Too many attempts, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
