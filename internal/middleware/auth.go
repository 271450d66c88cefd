package middleware

import (
	"strings"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/utils"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRole     = "role"
)

// AuthRequired checks for a valid JWT token.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checkJWT(c) {
			c.Abort()
			return
		}
		c.Next()
	}
}

// ServiceAuth accepts either the static API key in X-API-Key or a valid
// Bearer JWT. Machine callers use the key; humans use their token.
func ServiceAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey != "" && c.GetHeader("X-API-Key") == apiKey {
			c.Set(ContextUsername, "service")
			c.Set(ContextRole, "service")
			c.Next()
			return
		}

		if !checkJWT(c) {
			c.Abort()
			return
		}
		c.Next()
	}
}

// checkJWT validates the Authorization header and populates the request
// context. It writes the 401 response on failure.
func checkJWT(c *gin.Context) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		response.Unauthorized(c, "authorization header required")
		return false
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		response.Unauthorized(c, "invalid authorization header format")
		return false
	}

	claims, err := utils.ParseToken(parts[1])
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		return false
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextRole, claims.Role)
	return true
}

// AdminRequired checks for admin role.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists || role != "admin" {
			c.JSON(403, response.Response{Code: 403, Message: "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID gets the current user ID from context.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetUsername gets the current username from context.
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(ContextUsername); exists {
		return username.(string)
	}
	return ""
}

// GetRole gets the current user role from context.
func GetRole(c *gin.Context) string {
	if role, exists := c.Get(ContextRole); exists {
		return role.(string)
	}
	return ""
}
