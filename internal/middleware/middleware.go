package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds security headers to responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}

// CORS handles Cross-Origin Resource Sharing
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		// Check if origin is allowed
		allowed := false
		for _, o := range allowedOrigins {
			if o == "*" || o == origin || strings.HasSuffix(origin, strings.TrimPrefix(o, "https://*")) {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Shop-Domain")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ShopMiddleware extracts the shop domain from the X-Shop-Domain header or
// query params
func ShopMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := c.GetHeader("X-Shop-Domain")
		if shop == "" {
			shop = c.Query("shop")
		}
		if shop != "" {
			c.Set("shop", shop)
		}
		c.Next()
	}
}

// RequireShop ensures a shop domain is present
func RequireShop() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := c.GetString("shop")
		if shop == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shop domain is required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetShop retrieves the shop domain from the context
func GetShop(c *gin.Context) string {
	return c.GetString("shop")
}
