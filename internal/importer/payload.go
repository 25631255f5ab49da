package importer

import "strings"

// SystemPayload is the three-collection system import document.
type SystemPayload struct {
	Items              []FlatItem           `json:"items"`
	Condiments         []Condiment          `json:"condiments" validate:"dive"`
	RestaurantCategory []RestaurantCategory `json:"restaurantCategory" validate:"dive"`
}

// FlatItem is one menu item tagged with its restaurant and category by name.
type FlatItem struct {
	RestaurantID   string            `json:"restaurantId"`
	RestaurantName string            `json:"restaurantName"`
	Category       string            `json:"category" validate:"required"`
	SubCategory    string            `json:"subCategory"`
	ItemCode       string            `json:"itemCode" validate:"required"`
	Name           string            `json:"name" validate:"required"`
	Description    string            `json:"description"`
	Price          float64           `json:"price" validate:"gte=0"`
	Currency       string            `json:"currency" validate:"omitempty,len=3"`
	IsAvailable    *bool             `json:"isAvailable"`
	SoldOut        *bool             `json:"soldOut"`
	ImageURL       string            `json:"imageUrl"`
	SortOrder      *int              `json:"sortOrder"`
	Condiments     string            `json:"condiments"`
	Attributes     map[string]string `json:"attributes"`
}

// Condiment is a modifier-group template referenced from items by code.
type Condiment struct {
	Code         string          `json:"code" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	MinSelection *int            `json:"minSelection" validate:"omitempty,gte=0"`
	MaxSelection *int            `json:"maxSelection" validate:"omitempty,gte=0"`
	Items        []CondimentItem `json:"items" validate:"dive"`
}

// CondimentItem is one named option of a condiment.
type CondimentItem struct {
	Name string `json:"name" validate:"required"`
}

// RestaurantCategory is the category tree of one restaurant.
type RestaurantCategory struct {
	RestaurantID   string         `json:"restaurantId"`
	RestaurantName string         `json:"restaurantName"`
	Categories     []CategoryNode `json:"categories"`
}

// CategoryNode is one node of a category tree. Depth 0 is a category, depth 1 a subcategory.
type CategoryNode struct {
	Name      string         `json:"name"`
	SortOrder int            `json:"sortOrder"`
	Children  []CategoryNode `json:"children"`
}

// MenuPayload is the nested single-restaurant import document.
type MenuPayload struct {
	Categories []MenuCategoryNode `json:"categories" validate:"dive"`
}

// MenuCategoryNode is a category with its direct items and subcategories.
type MenuCategoryNode struct {
	Name          string            `json:"name" validate:"required"`
	Description   string            `json:"description"`
	SortOrder     int               `json:"sortOrder"`
	IsActive      *bool             `json:"isActive"`
	Items         []MenuItemNode    `json:"items"`
	SubCategories []SubCategoryNode `json:"subCategories" validate:"dive"`
}

// SubCategoryNode is a subcategory with its items.
type SubCategoryNode struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description"`
	SortOrder   int            `json:"sortOrder"`
	IsActive    *bool          `json:"isActive"`
	Items       []MenuItemNode `json:"items"`
}

// MenuItemNode is an item of the nested import document.
type MenuItemNode struct {
	ItemCode    string            `json:"itemCode" validate:"required"`
	Name        string            `json:"name" validate:"required"`
	Description string            `json:"description"`
	Price       float64           `json:"price" validate:"gte=0"`
	Currency    string            `json:"currency" validate:"omitempty,len=3"`
	IsAvailable *bool             `json:"isAvailable"`
	SoldOut     *bool             `json:"soldOut"`
	ImageURL    string            `json:"imageUrl"`
	SortOrder   *int              `json:"sortOrder"`
	Attributes  map[string]string `json:"attributes"`
}

// codes splits a comma-separated condiment list, dropping blanks and duplicates.
func codes(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range strings.Split(s, ",") {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
