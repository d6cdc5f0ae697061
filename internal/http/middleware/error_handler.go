package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/corent-backend/internal/interface/http/response"
)

// ErrorHandler отдаёт клиенту последнюю ошибку, добавленную через c.Error,
// если хэндлер сам ничего не записал. Внутренние ошибки маскируются в response.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		response.Error(c, c.Errors.Last().Err)
	}
}
