package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/utils"
)

// IdentityProvider verifies and registers credentials. Profiles are kept by the application.
type IdentityProvider interface {
	Verify(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password string) error
}

// CredentialStore persists password hashes for LocalIdentityProvider.
type CredentialStore interface {
	PasswordHash(ctx context.Context, email string) (string, error)
	Save(ctx context.Context, email, hash string) error
}

// LocalIdentityProvider is a bcrypt password provider over a CredentialStore.
type LocalIdentityProvider struct {
	store CredentialStore
}

// NewLocalIdentityProvider creates a password provider.
func NewLocalIdentityProvider(store CredentialStore) *LocalIdentityProvider {
	return &LocalIdentityProvider{store: store}
}

func (p *LocalIdentityProvider) Verify(ctx context.Context, email, password string) error {
	hash, err := p.store.PasswordHash(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.Authentication("invalid email or password")
		}
		return err
	}
	if !utils.CheckPassword(password, hash) {
		return apperr.Authentication("invalid email or password")
	}
	return nil
}

func (p *LocalIdentityProvider) Register(ctx context.Context, email, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return apperr.Internal(err)
	}
	return p.store.Save(ctx, email, hash)
}

// ProfileStore is the user profile persistence the service needs.
type ProfileStore interface {
	UserStore
	Create(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

// PropertyLookup resolves a property id.
type PropertyLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

// Service implements login, registration and logout.
type Service struct {
	idp     IdentityProvider
	users   ProfileStore
	props   PropertyLookup
	jwt     *JWTService
	revoked Revocations
	logger  *zap.Logger
}

// NewService creates the auth service.
func NewService(idp IdentityProvider, users ProfileStore, props PropertyLookup, jwt *JWTService, revoked Revocations, logger *zap.Logger) *Service {
	if revoked == nil {
		revoked = NoRevocations{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{idp: idp, users: users, props: props, jwt: jwt, revoked: revoked, logger: logger}
}

// Login verifies credentials with the identity provider and returns the profile, provisioning a
// Staff profile on first login, together with a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.TrimSpace(email)
	if err := s.idp.Verify(ctx, email, password); err != nil {
		return nil, "", err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if apperr.KindOf(err) == apperr.KindNotFound {
		u = &models.User{Email: strings.ToLower(email), Name: nameFromEmail(email), Role: models.RoleStaff}
		if err = s.users.Create(ctx, u); err != nil {
			return nil, "", err
		}
		s.logger.Info("provisioned user profile on first login", zap.String("user_id", u.ID.String()))
	} else if err != nil {
		return nil, "", err
	}
	token, err := s.jwt.Generate(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	return u, token, nil
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Role       string
	PropertyID *uuid.UUID
}

// Register creates credentials and a profile. SuperAdmin may only be claimed by the first account;
// scoped roles need an existing property.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	role := models.RoleStaff
	if in.Role != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok {
			return nil, "", apperr.Validation("invalid role")
		}
		role = r
	}
	if role == models.RoleSuperAdmin {
		n, err := s.users.Count(ctx)
		if err != nil {
			return nil, "", err
		}
		if n > 0 {
			return nil, "", apperr.Forbidden("SuperAdmin accounts cannot be self-registered")
		}
		in.PropertyID = nil
	} else {
		if in.PropertyID == nil {
			return nil, "", apperr.Validation("propertyId is required for role " + string(role))
		}
		if _, err := s.props.GetByID(ctx, *in.PropertyID); err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return nil, "", apperr.Validation("property does not exist")
			}
			return nil, "", err
		}
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, "", apperr.Conflict("email already registered")
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, "", err
	}
	// The profile goes first so a credential never exists without its scoped profile.
	u := &models.User{Email: strings.ToLower(strings.TrimSpace(in.Email)), Name: in.Name, Role: role, PropertyID: in.PropertyID}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", err
	}
	if err := s.idp.Register(ctx, in.Email, in.Password); err != nil {
		if delErr := s.users.Delete(ctx, u.ID); delErr != nil {
			s.logger.Error("profile left without credentials", zap.String("user_id", u.ID.String()), zap.Error(delErr))
		}
		return nil, "", err
	}
	token, err := s.jwt.Generate(u.ID, u.Email, string(u.Role))
	if err != nil {
		s.logger.Warn("session token not issued after registration", zap.Error(err))
		return u, "", nil
	}
	return u, token, nil
}

// Logout revokes the caller's session token. API tokens are revoked through their own endpoint.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	if p == nil || p.Kind != CredentialSession {
		return apperr.Validation("logout requires a session token")
	}
	if p.TokenID == "" {
		return apperr.Validation("token has no id and cannot be revoked")
	}
	if err := s.revoked.Revoke(ctx, p.TokenID, p.Expires); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func nameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
