package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextKey = "auth.user"

// Middleware extracts the caller identity from an opaque bearer token.
// The token value is the user id (email-shaped); no token-format validation
// happens beyond non-emptiness. Browser WebSocket clients cannot set
// headers, so a "token" query parameter is accepted as a fallback.
// Identity is optional here; routes that need it add RequireUser.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			if token = strings.TrimSpace(token); token != "" {
				c.Set(contextKey, token)
				c.Next()
				return
			}
		}
		if token := c.Query("token"); token != "" {
			c.Set(contextKey, token)
		}
		c.Next()
	}
}

// RequireUser aborts with 401 when the request carries no identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return "", false
	}
	id, _ := v.(string)
	return id, id != ""
}
