package models

import (
	"time"

	"github.com/google/uuid"
)

// MenuCategory groups menu items of one restaurant. Lists are ordered by SortOrder, then CreatedAt.
type MenuCategory struct {
	ID            uuid.UUID     `json:"id"`
	RestaurantID  uuid.UUID     `json:"restaurantId"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	SortOrder     int           `json:"sortOrder"`
	IsActive      bool          `json:"isActive"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	SubCategories []SubCategory `json:"subCategories,omitempty"`
	Items         []MenuItem    `json:"items,omitempty"`
}

// SubCategory belongs to one category; SortOrder is scoped to the parent.
type SubCategory struct {
	ID          uuid.UUID  `json:"id"`
	CategoryID  uuid.UUID  `json:"categoryId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	SortOrder   int        `json:"sortOrder"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Items       []MenuItem `json:"items,omitempty"`
}

// MenuItem is a sellable dish. IsAvailable and SoldOut are independent flags.
// ItemCode is the natural key used by menu imports.
type MenuItem struct {
	ID               uuid.UUID         `json:"id"`
	CategoryID       uuid.UUID         `json:"categoryId"`
	SubCategoryID    *uuid.UUID        `json:"subCategoryId,omitempty"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Price            float64           `json:"price"`
	Currency         string            `json:"currency"`
	IsAvailable      bool              `json:"isAvailable"`
	SoldOut          bool              `json:"soldOut"`
	ItemCode         string            `json:"itemCode"`
	ImageURL         string            `json:"imageUrl,omitempty"`
	SortOrder        int               `json:"sortOrder"`
	AllergenIDs      []uuid.UUID       `json:"allergenIds"`
	ModifierGroupIDs []uuid.UUID       `json:"modifierGroupIds"`
	Attributes       map[string]string `json:"attributes"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Orderable reports whether the item can be placed on a new order.
func (m *MenuItem) Orderable() bool { return m.IsAvailable && !m.SoldOut }

// Allergen is tenant-wide vocabulary referenced by menu items.
type Allergen struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Attribute is tenant-wide vocabulary; items key their attribute map by attribute id.
type Attribute struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ModifierGroup is a restaurant-scoped set of options, e.g. "Sauces". MinSelection <= MaxSelection.
type ModifierGroup struct {
	ID           uuid.UUID      `json:"id"`
	RestaurantID uuid.UUID      `json:"restaurantId"`
	Name         string         `json:"name"`
	Code         string         `json:"code,omitempty"`
	MinSelection int            `json:"minSelection"`
	MaxSelection int            `json:"maxSelection"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	Items        []ModifierItem `json:"items"`
}

// ModifierItem is one option in a group with a non-negative surcharge.
type ModifierItem struct {
	ID          uuid.UUID `json:"id"`
	GroupID     uuid.UUID `json:"groupId"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	IsAvailable bool      `json:"isAvailable"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
}
