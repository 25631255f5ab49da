package auth

import "github.com/gin-gonic/gin"

// ContextPrincipal is the gin context key holding the request's *Principal.
const ContextPrincipal = "principal"

// SetPrincipal stores the authenticated caller on the request context.
func SetPrincipal(c *gin.Context, p *Principal) { c.Set(ContextPrincipal, p) }

// PrincipalFrom returns the authenticated caller, or nil on public routes.
func PrincipalFrom(c *gin.Context) *Principal {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*Principal)
	return p
}
