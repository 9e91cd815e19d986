package mw

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// userIDKey is the gin context key the authenticated user id is stored
// under.
const userIDKey = "userID"

// Identity reads the externally-authenticated user id from the X-User-ID
// header. Authentication itself happens upstream (gateway, session layer);
// this service only performs ownership checks against the id it is handed.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid X-User-ID header"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by Identity.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
