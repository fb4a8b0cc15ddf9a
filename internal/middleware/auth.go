package middleware

import (
	"strings"

	"report-go/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// 会话中的键名
const (
	SessionKeyUserID  = "user_id"
	SessionKeyEmail   = "email"
	SessionKeyIsAdmin = "is_admin"
)

// AuthMiddleware 认证中间件
// 浏览器通过登录时下发的会话Cookie认证,
// 非浏览器客户端通过 Authorization: Bearer <token> 认证
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 优先检查会话Cookie
		session := sessions.Default(c)
		if userID, ok := session.Get(SessionKeyUserID).(uint); ok && userID != 0 {
			c.Set("user_id", userID)
			if email, ok := session.Get(SessionKeyEmail).(string); ok {
				c.Set("email", email)
			}
			if isAdmin, ok := session.Get(SessionKeyIsAdmin).(bool); ok {
				c.Set("is_admin", isAdmin)
			}
			c.Next()
			return
		}

		// 回退到Bearer Token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "未认证")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Unauthorized(c, "无效的认证格式")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			utils.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("is_admin", claims.IsAdmin)

		c.Next()
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetEmail 从上下文获取邮箱
func GetEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get("email")
	if !exists {
		return "", false
	}
	return email.(string), true
}

// IsAdmin 从上下文判断是否为管理员
func IsAdmin(c *gin.Context) bool {
	isAdmin, exists := c.Get("is_admin")
	if !exists {
		return false
	}
	return isAdmin.(bool)
}
