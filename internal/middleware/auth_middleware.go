package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lottoml/lotto-engine/internal/config"
	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/utils"
	"golang.org/x/exp/slog"
)

var kindUnauthorized = string(errs.KindUnauthorized)

// AdminAuthMiddleware requires a bearer token carrying the admin role.
// With no secret configured the admin routes stay open.
func AdminAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	secret := cfg.JWT.Secret
	if secret == "" {
		slog.Warn("JWT secret is not configured, admin routes are unauthenticated")
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		const bearerSchema = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, kindUnauthorized,
				"Authorization header is required", "missing bearer token")
			return
		}
		if !strings.HasPrefix(authHeader, bearerSchema) {
			abortWithError(c, http.StatusUnauthorized, kindUnauthorized,
				"Authorization header must start with Bearer", "malformed authorization header")
			return
		}

		claims, err := utils.ValidateJWT(strings.TrimSpace(authHeader[len(bearerSchema):]), secret)
		if err != nil {
			slog.Warn("Admin token rejected", "requestId", c.GetString(RequestIDKey), "error", err)
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, kindUnauthorized, "Token has expired", "token expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, kindUnauthorized, "Invalid token", "token validation failed")
			}
			return
		}
		if role, _ := claims["role"].(string); role != utils.RoleAdmin {
			abortWithError(c, http.StatusForbidden, "forbidden", "Admin role required", "token lacks admin role")
			return
		}

		c.Set("subject", claims["sub"])
		c.Next()
	}
}
