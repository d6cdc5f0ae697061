package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/corent-backend/internal/interface/http/response"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AccessTokenParser проверяет access токен, выпущенный сервисом авторизации.
type AccessTokenParser interface {
	ParseAccess(token string) (uuid.UUID, string, error)
}

// AuthMiddleware проверяет JWT access токен из заголовка Authorization.
func AuthMiddleware(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		if !authenticate(c, tokens, raw) {
			response.Unauthorized(c, "токен невалиден")
			return
		}
		c.Next()
	}
}

// QueryTokenAuth берёт токен из параметра token: браузер не умеет
// передавать заголовки при открытии WebSocket.
func QueryTokenAuth(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			response.Unauthorized(c, "access токен обязателен")
			return
		}
		if !authenticate(c, tokens, raw) {
			response.Unauthorized(c, "невалидный access токен")
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, tokens AccessTokenParser, raw string) bool {
	userID, role, err := tokens.ParseAccess(raw)
	if err != nil || userID == uuid.Nil {
		return false
	}
	c.Set(ContextUserIDKey, userID)
	c.Set(ContextRoleKey, role)
	return true
}
