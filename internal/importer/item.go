package importer

import (
	"strings"

	"github.com/google/uuid"

	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/utils"
)

// itemFields is the payload side of an item upsert, shared by both import documents.
// Pointer fields are optional: nil leaves the stored value alone on merge.
type itemFields struct {
	ItemCode         string
	Name             string
	Description      string
	Price            float64
	Currency         string
	IsAvailable      *bool
	SoldOut          *bool
	ImageURL         string
	SortOrder        *int
	SubCategoryID    *uuid.UUID
	ModifierGroupIDs []uuid.UUID
	Attributes       map[string]string
}

func (f itemFields) newItem(categoryID uuid.UUID) *models.MenuItem {
	m := &models.MenuItem{
		CategoryID:       categoryID,
		SubCategoryID:    f.SubCategoryID,
		Name:             strings.TrimSpace(f.Name),
		Description:      f.Description,
		Price:            utils.RoundMoney(f.Price),
		Currency:         strings.ToUpper(f.Currency),
		IsAvailable:      true,
		ItemCode:         f.ItemCode,
		ImageURL:         f.ImageURL,
		AllergenIDs:      []uuid.UUID{},
		ModifierGroupIDs: append([]uuid.UUID{}, f.ModifierGroupIDs...),
		Attributes:       map[string]string{},
	}
	if m.Currency == "" {
		m.Currency = "USD"
	}
	if f.IsAvailable != nil {
		m.IsAvailable = *f.IsAvailable
	}
	if f.SoldOut != nil {
		m.SoldOut = *f.SoldOut
	}
	if f.SortOrder != nil {
		m.SortOrder = *f.SortOrder
	}
	for k, v := range f.Attributes {
		m.Attributes[k] = v
	}
	return m
}

// merge applies the payload onto a stored item. Name and price always come from the payload;
// optional fields only when present. Modifier groups are unioned, allergens are left untouched.
func (f itemFields) merge(existing *models.MenuItem) (*models.MenuItem, bool) {
	m := *existing
	changed := false
	setStr := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	setStr(&m.Name, strings.TrimSpace(f.Name))
	setStr(&m.Description, f.Description)
	setStr(&m.Currency, strings.ToUpper(f.Currency))
	setStr(&m.ImageURL, f.ImageURL)

	if p := utils.RoundMoney(f.Price); p != m.Price {
		m.Price = p
		changed = true
	}
	if f.IsAvailable != nil && *f.IsAvailable != m.IsAvailable {
		m.IsAvailable = *f.IsAvailable
		changed = true
	}
	if f.SoldOut != nil && *f.SoldOut != m.SoldOut {
		m.SoldOut = *f.SoldOut
		changed = true
	}
	if f.SortOrder != nil && *f.SortOrder != m.SortOrder {
		m.SortOrder = *f.SortOrder
		changed = true
	}
	if f.SubCategoryID != nil && (m.SubCategoryID == nil || *m.SubCategoryID != *f.SubCategoryID) {
		id := *f.SubCategoryID
		m.SubCategoryID = &id
		changed = true
	}

	groups := append([]uuid.UUID{}, existing.ModifierGroupIDs...)
	have := make(map[uuid.UUID]bool, len(groups))
	for _, id := range groups {
		have[id] = true
	}
	for _, id := range f.ModifierGroupIDs {
		if !have[id] {
			have[id] = true
			groups = append(groups, id)
			changed = true
		}
	}
	m.ModifierGroupIDs = groups

	if len(f.Attributes) > 0 {
		attrs := make(map[string]string, len(existing.Attributes)+len(f.Attributes))
		for k, v := range existing.Attributes {
			attrs[k] = v
		}
		for k, v := range f.Attributes {
			if cur, ok := attrs[k]; !ok || cur != v {
				attrs[k] = v
				changed = true
			}
		}
		m.Attributes = attrs
	}
	return &m, changed
}
