package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserKey is the gin context key holding the authenticated *internal.User.
const UserKey = "user"

func AuthMiddleware(provider Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			user, err := provider.Authenticate(c.Request.Context(), token)
			if err == nil {
				c.Set(UserKey, user)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}
