package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/response"
)

// RequireRole admits callers whose role is min or higher in the hierarchy.
func RequireRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := auth.PrincipalFrom(c)
		if p == nil {
			response.Error(c, apperr.Authentication("missing user context"))
			c.Abort()
			return
		}
		if !p.Role().AtLeast(min) {
			response.Error(c, apperr.Forbidden("insufficient permissions"))
			c.Abort()
			return
		}
		c.Next()
	}
}
