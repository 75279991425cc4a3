package middleware

import "github.com/gin-gonic/gin"

// NoStore marks responses as per-user so shared caches never keep them.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
