package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"expertcheck/internal/logger"
	"expertcheck/internal/metrics"
)

// requestLogger logs HTTP requests with method, path, status and duration.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("HTTP request",
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Int("status_code", c.Writer.Status()),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", time.Since(start)),
		)
	}
}

// requestMetrics records request counts and latency by matched route.
func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// apiKeyAuth enforces API-key authentication via Bearer tokens. An empty key
// set disables the check.
func apiKeyAuth(validKeys map[string]struct{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(validKeys) == 0 {
			c.Next()
			return
		}

		const prefix = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, prefix) {
			c.Header("WWW-Authenticate", `Bearer realm="expertcheck"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "UNAUTHORIZED",
				"message": "missing bearer token",
			})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		if _, ok := validKeys[token]; !ok {
			c.Header("WWW-Authenticate", `Bearer realm="expertcheck", error="invalid_token"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "UNAUTHORIZED",
				"message": "invalid bearer token",
			})
			return
		}
		c.Next()
	}
}
