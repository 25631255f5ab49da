package models

import (
	"time"

	"github.com/google/uuid"
)

// APIToken is a long-lived bearer credential for unattended clients such as kitchen tablets.
// Only a hash and a short preview are stored; Token is populated once, in the creation response.
type APIToken struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Token        string     `json:"token,omitempty"`
	TokenPreview string     `json:"tokenPreview"`
	TokenHash    string     `json:"-"`
	RestaurantID *uuid.UUID `json:"restaurantId,omitempty"`
	PropertyID   *uuid.UUID `json:"propertyId,omitempty"`
	IsActive     bool       `json:"isActive"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt   *time.Time `json:"lastUsedAt,omitempty"`
	CreatedBy    *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Usable reports whether the token may authenticate at now.
func (t *APIToken) Usable(now time.Time) bool {
	if !t.IsActive {
		return false
	}
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}
