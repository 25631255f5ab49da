package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/pkg/response"
)

// Authenticate resolves the bearer token through the gate and stores the principal on the context.
// Both session and API tokens are accepted; use RequireSession to narrow a route.
func Authenticate(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, apperr.Authentication("missing or invalid authorization header"))
			c.Abort()
			return
		}
		p, err := gate.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		auth.SetPrincipal(c, p)
		c.Next()
	}
}

// RequireSession rejects API-token callers.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := auth.PrincipalFrom(c)
		if p == nil || p.Kind != auth.CredentialSession {
			response.Error(c, apperr.Forbidden("this endpoint requires a user session"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
