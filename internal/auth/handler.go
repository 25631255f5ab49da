package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/response"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Name       string     `json:"name" binding:"required"`
	Email      string     `json:"email" binding:"required,email"`
	Password   string     `json:"password" binding:"required,min=8"`
	Role       string     `json:"role"`
	PropertyID *uuid.UUID `json:"propertyId"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response. Token is null when no session could be issued.
type TokenResponse struct {
	User  *models.User `json:"user"`
	Token *string      `json:"token"`
}

// MeResponse describes the caller of GET /auth/me.
type MeResponse struct {
	Kind     CredentialKind   `json:"kind"`
	User     *models.User     `json:"user,omitempty"`
	APIToken *models.APIToken `json:"apiToken,omitempty"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc    *Service
	users  *Repository
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, users *Repository, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, users: users, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, token, err := h.svc.Register(c.Request.Context(), RegisterInput{
		Name: req.Name, Email: req.Email, Password: req.Password, Role: req.Role, PropertyID: req.PropertyID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := TokenResponse{User: u}
	if token != "" {
		resp.Token = &token
	}
	response.Created(c, resp)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, TokenResponse{User: u, Token: &token})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	p := PrincipalFrom(c)
	if p == nil {
		response.Error(c, apperr.Authentication("missing credentials"))
		return
	}
	response.OK(c, MeResponse{Kind: p.Kind, User: p.User, APIToken: p.APIToken})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), PrincipalFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"loggedOut": true})
}

// List handles GET /users. Scoped callers only see users of their own property.
func (h *Handler) List(c *gin.Context) {
	p := PrincipalFrom(c)
	var scope *uuid.UUID
	if p.Role().Scoped() {
		if p.User == nil || p.User.PropertyID == nil {
			response.OK(c, []models.User{})
			return
		}
		scope = p.User.PropertyID
	}
	list, err := h.users.List(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
