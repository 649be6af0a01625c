package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lottoml/lotto-engine/internal/config"
	"github.com/lottoml/lotto-engine/internal/errs"
	"golang.org/x/exp/slog"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "RequestID"

// abortWithError writes the API error envelope and stops the chain
func abortWithError(c *gin.Context, status int, kind, message, detail string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":  "error",
		"message": message,
		"detail":  detail,
		"kind":    kind,
	})
}

// CORSMiddleware is a middleware for CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := strings.Join(cfg.Server.AllowedHosts, ",")
	if allowed == "" {
		allowed = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowed)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware is a middleware for adding a request ID to the context
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggerMiddleware logs one line per request
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		attrs := []any{
			"requestId", c.GetString(RequestIDKey),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", latency,
			"clientIp", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		switch {
		case status >= http.StatusInternalServerError:
			slog.Error("Request failed", attrs...)
		case status >= http.StatusBadRequest:
			slog.Warn("Request rejected", attrs...)
		default:
			slog.Info("Request handled", attrs...)
		}
	}
}

// RecoveryMiddleware converts panics into internal errors
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Recovered from panic",
					"requestId", c.GetString(RequestIDKey),
					"path", c.Request.URL.Path,
					"panic", fmt.Sprint(r))
				abortWithError(c, http.StatusInternalServerError, string(errs.KindInternal),
					"Internal server error", errs.Detail(nil))
			}
		}()
		c.Next()
	}
}
