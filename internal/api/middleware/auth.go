package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ehopn/invoice_go_server/internal/pkg/jwt"
	"github.com/ehopn/invoice_go_server/internal/pkg/response"
)

// UserIDKey 认证通过后写入 gin 上下文的键
const UserIDKey = "userID"

// bearerToken 从 Authorization 头里取出 Bearer 令牌
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

// Auth 校验 JWT，通过后把用户 ID 放进上下文
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.AuthError(c, "Authentication required")
			c.Abort()
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			response.AuthError(c, "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// OptionalAuth 同 Auth 但不强制：令牌缺失或无效时照样放行，
// 只是上下文里没有用户 ID
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c); ok {
			if claims, err := jwt.ParseToken(tokenString, jwtSecret); err == nil {
				c.Set(UserIDKey, claims.UserID)
			}
		}
		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}
