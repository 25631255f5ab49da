package auth

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds session JWT claims.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// ProviderClaims are the claims of a token minted by the managed identity provider.
type ProviderClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 session tokens, and optionally verifies identity-provider
// tokens signed with an asymmetric key.
type JWTService struct {
	secret      []byte
	ephemeral   bool
	expireHours int
	providerKey crypto.PublicKey
}

// NewJWTService creates a JWT service. An empty secret falls back to a random per-process key,
// so issued sessions do not survive a restart.
func NewJWTService(secret string, expireHours int) *JWTService {
	s := &JWTService{secret: []byte(secret), expireHours: expireHours}
	if secret == "" {
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		s.secret = []byte(hex.EncodeToString(b))
		s.ephemeral = true
	}
	if s.expireHours <= 0 {
		s.expireHours = 24
	}
	return s
}

// Ephemeral reports whether the signing key was generated at startup.
func (s *JWTService) Ephemeral() bool { return s.ephemeral }

// WithProviderKey enables verification of identity-provider tokens (RS256/ES256/EdDSA).
func (s *JWTService) WithProviderKey(pemKey string) error {
	if pemKey == "" {
		return nil
	}
	b := []byte(pemKey)
	if k, err := jwt.ParseRSAPublicKeyFromPEM(b); err == nil {
		s.providerKey = k
		return nil
	}
	if k, err := jwt.ParseECPublicKeyFromPEM(b); err == nil {
		s.providerKey = k
		return nil
	}
	k, err := jwt.ParseEdPublicKeyFromPEM(b)
	if err != nil {
		return errors.New("unsupported provider public key")
	}
	s.providerKey = k
	return nil
}

// Generate creates a new session JWT for the user.
func (s *JWTService) Generate(userID uuid.UUID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a session JWT, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateProvider verifies an identity-provider token against the configured public key.
func (s *JWTService) ValidateProvider(tokenString string) (*ProviderClaims, error) {
	if s.providerKey == nil {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &ProviderClaims{}, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA, *jwt.SigningMethodEd25519:
			return s.providerKey, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*ProviderClaims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
