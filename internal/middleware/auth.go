package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huddle-chat/huddle/internal/dto/response"
	"github.com/huddle-chat/huddle/internal/pkg/utils"
	"github.com/huddle-chat/huddle/internal/service"
)

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	IdentityKey         = "identity"
	ClaimsKey           = "claims"
)

// Auth validates the bearer token and resolves the caller's Identity
// once. Handlers and services read the Identity from the context and
// never touch tokens again.
func Auth(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			response.Unauthorized(c, "missing authentication token")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		if token == "" {
			response.Unauthorized(c, "token cannot be empty")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			if err == utils.ErrExpiredToken {
				response.Unauthorized(c, "token expired")
			} else {
				response.Unauthorized(c, "invalid token")
			}
			c.Abort()
			return
		}

		c.Set(IdentityKey, service.Identity{
			UserID:     claims.UserID,
			Username:   claims.Username,
			Privileged: claims.Privileged,
		})
		c.Set(ClaimsKey, claims)

		c.Next()
	}
}

// RequirePrivileged gates an endpoint to privileged callers. Must run
// after Auth.
func RequirePrivileged() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok || !identity.Privileged {
			response.Forbidden(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentIdentity retrieves the resolved Identity from the context
func CurrentIdentity(c *gin.Context) (service.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return service.Identity{}, false
	}
	identity, ok := v.(service.Identity)
	return identity, ok
}

// GetUserID retrieves the caller's user ID, or "" when unauthenticated
func GetUserID(c *gin.Context) string {
	identity, ok := CurrentIdentity(c)
	if !ok {
		return ""
	}
	return identity.UserID
}

// GetClaims retrieves the raw JWT claims from the context
func GetClaims(c *gin.Context) *utils.Claims {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil
	}
	return claims.(*utils.Claims)
}
