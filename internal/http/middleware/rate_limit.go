package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/corent-backend/internal/interface/http/response"
	"github.com/ignatzorin/corent-backend/internal/logger"
	"github.com/ignatzorin/corent-backend/internal/pkg/apperror"
)

// RateLimitMiddleware ограничивает количество запросов с одного IP.
// По умолчанию: 10 запросов в минуту. Лимиты на номер телефона считает сервис.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = 1 * time.Minute
	}

	rate := limiter.Rate{
		Period: period,
		Limit:  limit,
	}
	instance := limiter.New(memory.NewStore(), rate)

	return func(c *gin.Context) {
		key := c.ClientIP()
		lctx, err := instance.Get(c, key)
		if err != nil {
			response.Error(c, apperror.NewInternal(err))
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", lctx.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", lctx.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", lctx.Reset))

		if lctx.Reached {
			retryAfter := time.Until(time.Unix(lctx.Reset, 0))
			logger.Security("ip_rate_limit_exceeded", logrus.Fields{
				"ip":   key,
				"path": c.FullPath(),
			})
			response.Error(c, apperror.NewRateLimited(retryAfter, int(limit), period))
			return
		}

		c.Next()
	}
}
