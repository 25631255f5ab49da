package menu

import (
	"time"

	"github.com/google/uuid"

	"github.com/menuportal/backend/internal/models"
)

// PublicMenu is the full tree served to digital-signage displays.
type PublicMenu struct {
	Restaurant     *models.Restaurant     `json:"restaurant"`
	Categories     []models.MenuCategory  `json:"categories"`
	ModifierGroups []models.ModifierGroup `json:"modifierGroups"`
	Allergens      []models.Allergen      `json:"allergens"`
	GeneratedAt    time.Time              `json:"generatedAt"`
}

// BuildTree nests subcategories and items under their categories, preserving input order.
// Items whose category or subcategory is not in the input are dropped, so filtering a parent out
// (e.g. inactive) hides its children too.
func BuildTree(cats []models.MenuCategory, subs []models.SubCategory, items []models.MenuItem) []models.MenuCategory {
	out := make([]models.MenuCategory, len(cats))
	catIdx := make(map[uuid.UUID]int, len(cats))
	for i, c := range cats {
		c.SubCategories = []models.SubCategory{}
		c.Items = []models.MenuItem{}
		out[i] = c
		catIdx[c.ID] = i
	}
	type subPos struct{ cat, sub int }
	subIdx := make(map[uuid.UUID]subPos, len(subs))
	for _, s := range subs {
		ci, ok := catIdx[s.CategoryID]
		if !ok {
			continue
		}
		s.Items = []models.MenuItem{}
		out[ci].SubCategories = append(out[ci].SubCategories, s)
		subIdx[s.ID] = subPos{ci, len(out[ci].SubCategories) - 1}
	}
	for _, it := range items {
		if it.SubCategoryID != nil {
			pos, ok := subIdx[*it.SubCategoryID]
			if !ok || out[pos.cat].ID != it.CategoryID {
				continue
			}
			sub := &out[pos.cat].SubCategories[pos.sub]
			sub.Items = append(sub.Items, it)
			continue
		}
		ci, ok := catIdx[it.CategoryID]
		if !ok {
			continue
		}
		out[ci].Items = append(out[ci].Items, it)
	}
	return out
}
