package jwt

import (
	"teamflow/pkg/logger"
	"teamflow/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	contextUserIDKey   = "user_id"
	contextUsernameKey = "username"
)

// AuthMiddleware 认证中间件，令牌来源见 TokenFromRequest
func (s *JWTService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		if token == "" {
			response.Unauthorized(c, "Authentication required")
			return
		}

		userID, username, err := s.Identity(token)
		if err != nil {
			logger.Debug("JWT验证失败", zap.Error(err), zap.String("path", c.Request.URL.Path))
			response.Unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Set(contextUsernameKey, username)
		c.Next()
	}
}

// GetUserID 未认证时返回0
func GetUserID(c *gin.Context) uint {
	return c.GetUint(contextUserIDKey)
}

// GetUsername 未认证时返回空串
func GetUsername(c *gin.Context) string {
	return c.GetString(contextUsernameKey)
}
