package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/utils"
)

// CredentialKind tells which authenticator accepted a bearer token.
type CredentialKind string

const (
	CredentialSession  CredentialKind = "session"
	CredentialAPIToken CredentialKind = "api_token"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Kind     CredentialKind
	User     *models.User     // set for sessions
	APIToken *models.APIToken // set for API tokens
	TokenID  string           // session jti, used for logout revocation
	Expires  time.Time
}

// Role returns the caller's effective role. API tokens act with Staff rights.
func (p *Principal) Role() models.Role {
	if p.User != nil {
		return p.User.Role
	}
	return models.RoleStaff
}

// Actor names the caller for audit columns such as order_status_log.changed_by.
func (p *Principal) Actor() string {
	if p.User != nil {
		return p.User.Email
	}
	if p.APIToken != nil {
		return "api-token:" + p.APIToken.Name
	}
	return "anonymous"
}

// CanAccessRestaurant reports whether the caller may act on a restaurant of the given property.
func (p *Principal) CanAccessRestaurant(restaurantID, propertyID uuid.UUID) bool {
	if p.User != nil {
		return p.User.CanAccessProperty(propertyID)
	}
	if p.APIToken == nil {
		return false
	}
	if p.APIToken.RestaurantID != nil && *p.APIToken.RestaurantID != restaurantID {
		return false
	}
	if p.APIToken.PropertyID != nil && *p.APIToken.PropertyID != propertyID {
		return false
	}
	return true
}

// Authenticator is one credential strategy. It returns (nil, nil) when the token is not its kind
// or does not match, so the gate moves on to the next strategy.
type Authenticator interface {
	TryAuthenticate(ctx context.Context, token string) (*Principal, error)
}

// Gate tries each authenticator in order and accepts the first match.
type Gate struct {
	chain  []Authenticator
	logger *zap.Logger
}

// NewGate creates a gate over the given ordered strategies.
func NewGate(logger *zap.Logger, chain ...Authenticator) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{chain: chain, logger: logger}
}

// Authenticate resolves a bearer token to a principal or fails with an authentication error.
func (g *Gate) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, apperr.Authentication("missing credentials")
	}
	for _, a := range g.chain {
		p, err := a.TryAuthenticate(ctx, token)
		if err != nil {
			g.logger.Error("authenticator failed", zap.Error(err))
			return nil, apperr.Internal(err)
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, apperr.Authentication("invalid or expired token")
}

// UserStore is the profile lookup the session strategies need.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionAuthenticator accepts HS256 session tokens issued at login.
type SessionAuthenticator struct {
	jwt     *JWTService
	users   UserStore
	revoked Revocations
}

// NewSessionAuthenticator creates the session strategy.
func NewSessionAuthenticator(jwt *JWTService, users UserStore, revoked Revocations) *SessionAuthenticator {
	if revoked == nil {
		revoked = NoRevocations{}
	}
	return &SessionAuthenticator{jwt: jwt, users: users, revoked: revoked}
}

func (a *SessionAuthenticator) TryAuthenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := a.jwt.Validate(token)
	if err != nil {
		return nil, nil
	}
	if gone, err := a.revoked.IsRevoked(ctx, claims.ID); err != nil {
		return nil, err
	} else if gone {
		return nil, nil
	}
	u, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	p := &Principal{Kind: CredentialSession, User: u, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		p.Expires = claims.ExpiresAt.Time
	}
	return p, nil
}

// ProviderAuthenticator accepts tokens minted by the managed identity provider and maps them to
// the application profile by email. Logout revokes them by jti like session tokens.
type ProviderAuthenticator struct {
	jwt     *JWTService
	users   UserStore
	revoked Revocations
}

// NewProviderAuthenticator creates the identity-provider strategy.
func NewProviderAuthenticator(jwt *JWTService, users UserStore, revoked Revocations) *ProviderAuthenticator {
	if revoked == nil {
		revoked = NoRevocations{}
	}
	return &ProviderAuthenticator{jwt: jwt, users: users, revoked: revoked}
}

func (a *ProviderAuthenticator) TryAuthenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := a.jwt.ValidateProvider(token)
	if err != nil {
		return nil, nil
	}
	if claims.ID != "" {
		if gone, err := a.revoked.IsRevoked(ctx, claims.ID); err != nil {
			return nil, err
		} else if gone {
			return nil, nil
		}
	}
	u, err := a.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	p := &Principal{Kind: CredentialSession, User: u, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		p.Expires = claims.ExpiresAt.Time
	}
	return p, nil
}

// APITokenLookup finds a stored API token by its hash.
type APITokenLookup interface {
	GetByHash(ctx context.Context, hash string) (*models.APIToken, error)
}

// APITokenAuthenticator accepts long-lived tokens from the api_tokens table.
type APITokenAuthenticator struct {
	tokens APITokenLookup
	touch  func(id uuid.UUID)
	now    func() time.Time
}

// NewAPITokenAuthenticator creates the API-token strategy. touch is invoked after every successful
// match and must not block; it stamps last_used_at out of band.
func NewAPITokenAuthenticator(tokens APITokenLookup, touch func(id uuid.UUID)) *APITokenAuthenticator {
	if touch == nil {
		touch = func(uuid.UUID) {}
	}
	return &APITokenAuthenticator{tokens: tokens, touch: touch, now: time.Now}
}

func (a *APITokenAuthenticator) TryAuthenticate(ctx context.Context, token string) (*Principal, error) {
	t, err := a.tokens.GetByHash(ctx, utils.HashAPIToken(token))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !t.Usable(a.now()) {
		return nil, nil
	}
	a.touch(t.ID)
	p := &Principal{Kind: CredentialAPIToken, APIToken: t}
	if t.ExpiresAt != nil {
		p.Expires = *t.ExpiresAt
	}
	return p, nil
}
