package apitokens

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/queue"
	"github.com/menuportal/backend/pkg/utils"
)

// Store is the token persistence used by Service.
type Store interface {
	Create(ctx context.Context, t *models.APIToken) error
	List(ctx context.Context) ([]models.APIToken, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.APIToken, error)
	GetByHash(ctx context.Context, hash string) (*models.APIToken, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.APIToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}

// TouchQueue hands last-used stamps to the background worker.
type TouchQueue interface {
	EnqueueTokenTouch(ctx context.Context, payload queue.TokenTouchPayload) error
}

// ScopeLookup validates the optional restaurant/property a token is bound to.
type ScopeLookup interface {
	RestaurantProperty(ctx context.Context, restaurantID uuid.UUID) (uuid.UUID, error)
	PropertyExists(ctx context.Context, propertyID uuid.UUID) error
}

// CreateInput describes a new token.
type CreateInput struct {
	Name          string
	RestaurantID  *uuid.UUID
	PropertyID    *uuid.UUID
	ExpiresInDays *int
}

// Service manages API tokens.
type Service struct {
	store  Store
	scope  ScopeLookup
	queue  TouchQueue
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the token service. q may be nil, in which case touches are written inline
// from a goroutine.
func NewService(store Store, scope ScopeLookup, q TouchQueue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, scope: scope, queue: q, logger: logger, now: time.Now}
}

// Generate creates a token and returns it with the raw secret, which is never retrievable again.
func (s *Service) Generate(ctx context.Context, in CreateInput, createdBy *uuid.UUID) (*models.APIToken, error) {
	if in.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if in.ExpiresInDays != nil && *in.ExpiresInDays < 1 {
		return nil, apperr.Validation("expiresInDays must be at least 1")
	}
	if in.RestaurantID != nil {
		prop, err := s.scope.RestaurantProperty(ctx, *in.RestaurantID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return nil, apperr.Validation("restaurant does not exist")
			}
			return nil, err
		}
		if in.PropertyID != nil && *in.PropertyID != prop {
			return nil, apperr.Validation("restaurant does not belong to property")
		}
		in.PropertyID = &prop
	} else if in.PropertyID != nil {
		if err := s.scope.PropertyExists(ctx, *in.PropertyID); err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return nil, apperr.Validation("property does not exist")
			}
			return nil, err
		}
	}

	raw, err := utils.NewAPIToken()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	t := &models.APIToken{
		Name:         in.Name,
		Token:        raw,
		TokenHash:    utils.HashAPIToken(raw),
		TokenPreview: utils.TokenPreview(raw),
		RestaurantID: in.RestaurantID,
		PropertyID:   in.PropertyID,
		IsActive:     true,
		CreatedBy:    createdBy,
	}
	if in.ExpiresInDays != nil {
		exp := s.now().Add(time.Duration(*in.ExpiresInDays) * 24 * time.Hour)
		t.ExpiresAt = &exp
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("api token created", zap.String("token_id", t.ID.String()), zap.String("name", t.Name))
	return t, nil
}

// List returns every token without secrets.
func (s *Service) List(ctx context.Context) ([]models.APIToken, error) {
	return s.store.List(ctx)
}

// Revoke deactivates a token; it stops authenticating immediately.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) (*models.APIToken, error) {
	return s.store.SetActive(ctx, id, false)
}

// Activate re-enables a revoked token. Expired tokens stay unusable.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*models.APIToken, error) {
	return s.store.SetActive(ctx, id, true)
}

// Delete removes a token.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

// Touch records that a token was used. It never blocks the request that used it.
func (s *Service) Touch(id uuid.UUID) {
	at := s.now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.queue != nil {
			err := s.queue.EnqueueTokenTouch(ctx, queue.TokenTouchPayload{TokenID: id, UsedAt: at})
			if err == nil {
				return
			}
			s.logger.Warn("token touch enqueue failed, writing inline", zap.Error(err))
		}
		if err := s.store.Touch(ctx, id, at); err != nil {
			s.logger.Warn("token touch failed", zap.String("token_id", id.String()), zap.Error(err))
		}
	}()
}
