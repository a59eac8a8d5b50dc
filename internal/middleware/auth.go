package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerShape 只校验 Authorization 头的形态（Bearer + 最小长度），
// 不做真实验签：调用方身份由上游网关预先验证，这里视为不透明标识。
func BearerShape() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": 401,
				"msg":  "missing or invalid authorization header",
			})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if len(token) < 10 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": 401,
				"msg":  "invalid token",
			})
			return
		}
		c.Next()
	}
}

// AdminToken 管理接口的简单令牌保护。
func AdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": 401,
				"msg":  "invalid admin token",
			})
			return
		}
		c.Next()
	}
}
