package restaurants

import (
	"context"

	"github.com/google/uuid"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/models"
)

// Lookup resolves restaurants by id.
type Lookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
}

// Guard checks that a principal may act on a restaurant.
type Guard struct {
	lookup Lookup
}

// NewGuard creates a restaurant access guard.
func NewGuard(lookup Lookup) *Guard {
	return &Guard{lookup: lookup}
}

// Restaurant loads the restaurant and verifies the caller's property or token scope covers it.
func (g *Guard) Restaurant(ctx context.Context, p *auth.Principal, id uuid.UUID) (*models.Restaurant, error) {
	rest, err := g.lookup.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.Authentication("missing credentials")
	}
	if !p.CanAccessRestaurant(rest.ID, rest.PropertyID) {
		return nil, apperr.Forbidden("not authorized for this restaurant")
	}
	return rest, nil
}

// Scope turns a principal into a list filter: SuperAdmins see everything, users their property,
// API tokens their bound restaurant and/or property.
func Scope(p *auth.Principal) Filter {
	var f Filter
	if p == nil {
		return f
	}
	if p.User != nil {
		if p.User.Role.Scoped() {
			f.PropertyID = p.User.PropertyID
			if f.PropertyID == nil {
				none := uuid.Nil
				f.PropertyID = &none
			}
		}
		return f
	}
	if p.APIToken != nil {
		f.PropertyID = p.APIToken.PropertyID
		f.RestaurantID = p.APIToken.RestaurantID
	}
	return f
}

// Directory resolves and lists restaurants.
type Directory interface {
	Lookup
	List(ctx context.Context, f Filter) ([]models.Restaurant, error)
}

// ScopeIDs resolves the restaurants a list request covers: restaurantID when given (checked against
// the caller), otherwise every restaurant in the caller's scope. nil means unrestricted.
func ScopeIDs(ctx context.Context, dir Directory, p *auth.Principal, restaurantID string) ([]uuid.UUID, error) {
	if restaurantID != "" {
		id, err := uuid.Parse(restaurantID)
		if err != nil {
			return nil, apperr.Validation("invalid restaurantId")
		}
		if _, err := NewGuard(dir).Restaurant(ctx, p, id); err != nil {
			return nil, err
		}
		return []uuid.UUID{id}, nil
	}
	f := Scope(p)
	if f == (Filter{}) {
		return nil, nil
	}
	list, err := dir.List(ctx, f)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
