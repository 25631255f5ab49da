package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/response"
)

type tokenTable map[string]*auth.Principal

func (t tokenTable) TryAuthenticate(_ context.Context, token string) (*auth.Principal, error) {
	return t[token], nil
}

func newRouter(gate *auth.Gate, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Authenticate(gate)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		response.OK(c, gin.H{"kind": auth.PrincipalFrom(c).Kind})
	})
	r.GET("/x", handlers...)
	return r
}

func do(r *gin.Engine, header string) (*httptest.ResponseRecorder, response.Body) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body response.Body
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuthenticate(t *testing.T) {
	gate := auth.NewGate(nil, tokenTable{
		"session-token": {Kind: auth.CredentialSession, User: &models.User{Role: models.RoleManager}},
		"mpt_tablet":    {Kind: auth.CredentialAPIToken},
	})
	r := newRouter(gate)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"session", "Bearer session-token", http.StatusOK},
		{"api token", "bearer mpt_tablet", http.StatusOK},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			w, body := do(r, testCase.header)
			assert.Equal(t, testCase.want, w.Code)
			assert.Equal(t, testCase.want == http.StatusOK, body.Success)
			if !body.Success {
				assert.NotEmpty(t, body.Message)
			}
		})
	}
}

func TestRequireSessionAndRole(t *testing.T) {
	gate := auth.NewGate(nil, tokenTable{
		"super":   {Kind: auth.CredentialSession, User: &models.User{Role: models.RoleSuperAdmin}},
		"staff":   {Kind: auth.CredentialSession, User: &models.User{Role: models.RoleStaff}},
		"machine": {Kind: auth.CredentialAPIToken},
	})
	r := newRouter(gate, RequireSession(), RequireRole(models.RoleAdmin))

	w, _ := do(r, "Bearer super")
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := do(r, "Bearer staff")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "insufficient permissions", body.Message)

	w, _ = do(r, "Bearer machine")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer  abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = bearerToken("abc")
	assert.False(t, ok)
}
