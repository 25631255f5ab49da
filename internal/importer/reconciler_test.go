package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/internal/restaurants"
)

var (
	harborID = uuid.MustParse("7b1e3c5a-0d7e-4a52-9a55-4c1f7d2a1001")
	skyID    = uuid.MustParse("7b1e3c5a-0d7e-4a52-9a55-4c1f7d2a1002")
)

func systemFixture(t *testing.T) ([]byte, SystemPayload) {
	t.Helper()
	raw := []byte(fmt.Sprintf(`{
	  "restaurantCategory": [
	    {"restaurantId": %q, "categories": [
	      {"name": "Mains", "sortOrder": 1, "children": [
	        {"name": "Burgers", "sortOrder": 1, "children": [{"name": "Smash", "sortOrder": 2}]}
	      ]},
	      {"name": "Drinks", "sortOrder": 2}
	    ]},
	    {"restaurantId": "does-not-exist", "restaurantName": "Nowhere Diner", "categories": [{"name": "Ghost Food"}]},
	    {"restaurantName": "sky lounge", "categories": [{"name": "Cocktails"}]}
	  ],
	  "condiments": [
	    {"code": "C1", "name": "Sauces", "items": [{"name": "Ketchup"}, {"name": "Mayo"}]}
	  ],
	  "items": [
	    {"restaurantId": %q, "category": "mains", "subCategory": "Burgers", "itemCode": "B1", "name": "Burger", "price": 12.99, "condiments": "C1, C1"},
	    {"restaurantId": %q, "category": "Mains", "itemCode": "B2", "name": "Fries", "price": 4.5, "condiments": "C1,UNKNOWN"},
	    {"restaurantId": %q, "category": "Desserts", "itemCode": "D1", "name": "Cake", "price": 6},
	    {"restaurantName": "Nowhere Diner", "category": "Ghost Food", "itemCode": "N1", "name": "Ghost", "price": 1},
	    {"restaurantName": "Sky Lounge", "category": "Cocktails", "itemCode": "K1", "name": "Negroni", "price": 11}
	  ]
	}`, harborID, harborID, harborID, harborID))
	var p SystemPayload
	require.NoError(t, json.Unmarshal(raw, &p))
	return raw, p
}

func newTestReconciler(archive Archiver) (*Reconciler, *memMenu) {
	rs := &memRestaurants{list: []models.Restaurant{
		{ID: harborID, Name: "Harbor Grill", IsActive: true},
		{ID: skyID, Name: "Sky Lounge", IsActive: true},
	}}
	store := &memMenu{}
	return NewReconciler(rs, store, archive, 4, zap.NewNop()), store
}

func TestImportSystemMenu_FirstRun(t *testing.T) {
	archive := &memArchive{}
	rec, store := newTestReconciler(archive)
	raw, payload := systemFixture(t)

	stats, err := rec.ImportSystemMenu(context.Background(), payload, restaurants.Filter{}, raw)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.CategoriesCreated)
	assert.Equal(t, 2, stats.SubcategoriesCreated, "Smash is flattened under Mains")
	assert.Equal(t, 3, stats.ItemsCreated)
	assert.Equal(t, 0, stats.ItemsUpdated)
	assert.Equal(t, 2, stats.ItemsSkipped, "missing category and skipped restaurant")
	assert.Equal(t, 1, stats.ModifierGroupsCreated)
	assert.Equal(t, 2, stats.ModifierItemsCreated)
	assert.Equal(t, []SkippedRestaurant{{ID: "does-not-exist", Name: "Nowhere Diner"}}, stats.RestaurantsSkipped)
	assert.Equal(t, "imports/test.json", stats.ArchiveKey)
	require.Len(t, archive.bodies, 1)

	for _, c := range store.categories {
		assert.NotEqual(t, "Ghost Food", c.Name)
	}

	burger := store.item("B1")
	require.NotNil(t, burger)
	assert.Equal(t, 12.99, burger.Price)
	assert.Equal(t, "USD", burger.Currency)
	assert.True(t, burger.IsAvailable)
	assert.Empty(t, burger.AllergenIDs)
	require.NotNil(t, burger.SubCategoryID)

	negroni := store.item("K1")
	require.NotNil(t, negroni)
	assert.Empty(t, negroni.ModifierGroupIDs)
}

func TestImportSystemMenu_ModifierGroupReuse(t *testing.T) {
	rec, store := newTestReconciler(nil)
	raw, payload := systemFixture(t)

	_, err := rec.ImportSystemMenu(context.Background(), payload, restaurants.Filter{}, raw)
	require.NoError(t, err)

	require.Len(t, store.groups, 1)
	g := store.groups[0]
	assert.Equal(t, "Sauces", g.Name)
	assert.Equal(t, 0, g.MinSelection)
	assert.Equal(t, 1, g.MaxSelection)
	for _, it := range g.Items {
		assert.Zero(t, it.Price)
	}
	assert.Equal(t, []uuid.UUID{g.ID}, store.item("B1").ModifierGroupIDs)
	assert.Equal(t, []uuid.UUID{g.ID}, store.item("B2").ModifierGroupIDs)
}

func TestImportSystemMenu_ModifierGroupsMatchByCode(t *testing.T) {
	payload := func() SystemPayload {
		return SystemPayload{
			RestaurantCategory: []RestaurantCategory{{RestaurantID: harborID.String(), Categories: []CategoryNode{{Name: "Mains"}}}},
			Condiments: []Condiment{
				{Code: "BRG", Name: "Sides", Items: []CondimentItem{{Name: "Fries"}}},
				{Code: "SAL", Name: "Sides", Items: []CondimentItem{{Name: "Dressing"}}},
			},
			Items: []FlatItem{
				{RestaurantID: harborID.String(), Category: "Mains", ItemCode: "B1", Name: "Burger", Price: 10, Condiments: "BRG"},
				{RestaurantID: harborID.String(), Category: "Mains", ItemCode: "S1", Name: "Salad", Price: 8, Condiments: "SAL"},
			},
		}
	}

	tests := []struct {
		name         string
		existing     []*models.ModifierGroup
		wantGroups   int
		wantModItems int
		wantStored   int
	}{
		{
			name:         "same name with different codes stays apart",
			wantGroups:   2,
			wantModItems: 2,
			wantStored:   2,
		},
		{
			name:         "uncoded group is adopted by name",
			existing:     []*models.ModifierGroup{{ID: uuid.New(), RestaurantID: harborID, Name: "sides"}},
			wantGroups:   1,
			wantModItems: 1,
			wantStored:   2,
		},
		{
			name:         "coded group is found again",
			existing:     []*models.ModifierGroup{{ID: uuid.New(), RestaurantID: harborID, Name: "Extras", Code: "SAL"}},
			wantGroups:   1,
			wantModItems: 1,
			wantStored:   2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, store := newTestReconciler(nil)
			store.groups = append(store.groups, tt.existing...)

			stats, err := rec.ImportSystemMenu(context.Background(), payload(), restaurants.Filter{}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantGroups, stats.ModifierGroupsCreated)
			assert.Equal(t, tt.wantModItems, stats.ModifierItemsCreated)
			require.Len(t, store.groups, tt.wantStored)

			burger, salad := store.item("B1"), store.item("S1")
			require.Len(t, burger.ModifierGroupIDs, 1)
			require.Len(t, salad.ModifierGroupIDs, 1)
			assert.NotEqual(t, burger.ModifierGroupIDs[0], salad.ModifierGroupIDs[0])

			again, err := rec.ImportSystemMenu(context.Background(), payload(), restaurants.Filter{}, nil)
			require.NoError(t, err)
			assert.Zero(t, again.ModifierGroupsCreated)
			assert.Len(t, store.groups, tt.wantStored)
		})
	}
}

func TestImportSystemMenu_Idempotent(t *testing.T) {
	rec, store := newTestReconciler(nil)
	raw, payload := systemFixture(t)
	ctx := context.Background()

	_, err := rec.ImportSystemMenu(ctx, payload, restaurants.Filter{}, raw)
	require.NoError(t, err)
	second, err := rec.ImportSystemMenu(ctx, payload, restaurants.Filter{}, raw)
	require.NoError(t, err)

	assert.Zero(t, second.CategoriesCreated)
	assert.Zero(t, second.SubcategoriesCreated)
	assert.Zero(t, second.ItemsCreated)
	assert.Zero(t, second.ModifierGroupsCreated)
	assert.Zero(t, second.ItemsUpdated)
	assert.Equal(t, 3, second.ItemsUnchanged)
	assert.Equal(t, 2, second.ItemsSkipped)
	assert.Len(t, store.categories, 3)
	assert.Len(t, store.items, 3)
	assert.Zero(t, store.updates)
}

func TestImportSystemMenu_UpdatesChangedFields(t *testing.T) {
	rec, store := newTestReconciler(nil)
	raw, payload := systemFixture(t)
	ctx := context.Background()
	_, err := rec.ImportSystemMenu(ctx, payload, restaurants.Filter{}, raw)
	require.NoError(t, err)

	payload.Items[0].Price = 15.99
	stats, err := rec.ImportSystemMenu(ctx, payload, restaurants.Filter{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ItemsUpdated)
	assert.Equal(t, 2, stats.ItemsUnchanged)
	assert.Equal(t, 15.99, store.item("B1").Price)
}

func TestImportSystemMenu_ScopeLimitsRestaurants(t *testing.T) {
	rec, store := newTestReconciler(nil)
	raw, payload := systemFixture(t)

	stats, err := rec.ImportSystemMenu(context.Background(), payload, restaurants.Filter{RestaurantID: &skyID}, raw)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.CategoriesCreated)
	assert.Equal(t, 1, stats.ItemsCreated)
	assert.Len(t, stats.RestaurantsSkipped, 2)
	assert.Nil(t, store.item("B1"))
}

func TestImportSystemMenu_ArchiveFailureIsNotFatal(t *testing.T) {
	rec, _ := newTestReconciler(&memArchive{err: errors.New("bucket unavailable")})
	raw, payload := systemFixture(t)

	stats, err := rec.ImportSystemMenu(context.Background(), payload, restaurants.Filter{}, raw)
	require.NoError(t, err)
	assert.Empty(t, stats.ArchiveKey)
	assert.Equal(t, 3, stats.ItemsCreated)
}

func TestImportSystemMenu_InvalidPayload(t *testing.T) {
	rec, store := newTestReconciler(nil)
	payload := SystemPayload{Condiments: []Condiment{{Name: "No code"}}}

	_, err := rec.ImportSystemMenu(context.Background(), payload, restaurants.Filter{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Empty(t, store.categories)
}

func TestImportSystemMenu_InvalidItemIsSkipped(t *testing.T) {
	rec, store := newTestReconciler(nil)
	raw, payload := systemFixture(t)
	payload.Items = append(payload.Items, FlatItem{RestaurantID: harborID.String(), Category: "Mains", ItemCode: "NEG", Name: "Refund", Price: -1})

	stats, err := rec.ImportSystemMenu(context.Background(), payload, restaurants.Filter{}, raw)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ItemsSkipped)
	assert.Nil(t, store.item("NEG"))
}

func TestImportMenuFromJSON(t *testing.T) {
	rec, store := newTestReconciler(nil)
	ctx := context.Background()
	var payload MenuPayload
	require.NoError(t, json.Unmarshal([]byte(`{
	  "categories": [
	    {"name": "Breakfast", "sortOrder": 1, "items": [{"itemCode": "E1", "name": "Eggs", "price": 7.5}],
	     "subCategories": [{"name": "Pancakes", "items": [{"itemCode": "P1", "name": "Stack", "price": 9, "soldOut": true}]}]},
	    {"name": "breakfast ", "items": [{"itemCode": "E2", "name": "Toast", "price": 3}]},
	    {"name": "Hidden", "isActive": false}
	  ]
	}`), &payload))

	stats, err := rec.ImportMenuFromJSON(ctx, harborID, payload)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CategoriesCreated)
	assert.Equal(t, 1, stats.SubcategoriesCreated)
	assert.Equal(t, 3, stats.ItemsCreated)

	stack := store.item("P1")
	require.NotNil(t, stack)
	assert.True(t, stack.SoldOut)
	require.NotNil(t, stack.SubCategoryID)

	for _, c := range store.categories {
		if c.Name == "Hidden" {
			assert.False(t, c.IsActive)
		}
	}

	again, err := rec.ImportMenuFromJSON(ctx, harborID, payload)
	require.NoError(t, err)
	assert.Zero(t, again.CategoriesCreated)
	assert.Zero(t, again.ItemsCreated)
	assert.Equal(t, 3, again.ItemsUnchanged)
}

func TestImportMenuFromJSON_UnknownRestaurant(t *testing.T) {
	rec, _ := newTestReconciler(nil)
	_, err := rec.ImportMenuFromJSON(context.Background(), uuid.New(), MenuPayload{})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestFlatten(t *testing.T) {
	nodes := []CategoryNode{
		{Name: "Burgers", Children: []CategoryNode{
			{Name: "Smash", Children: []CategoryNode{{Name: "Double"}}},
		}},
		{Name: "Sides"},
	}
	out, deep := flatten(nodes)
	names := make([]string, 0, len(out))
	for _, n := range out {
		names = append(names, n.Name)
		assert.Empty(t, n.Children)
	}
	assert.Equal(t, []string{"Burgers", "Smash", "Double", "Sides"}, names)
	assert.Equal(t, 2, deep)
}

func TestItemFieldsMerge(t *testing.T) {
	existingGroup, newGroup := uuid.New(), uuid.New()
	allergen := uuid.New()
	existing := &models.MenuItem{
		ID:               uuid.New(),
		Name:             "Burger",
		Description:      "Beef",
		Price:            12.99,
		Currency:         "USD",
		IsAvailable:      true,
		ItemCode:         "B1",
		AllergenIDs:      []uuid.UUID{allergen},
		ModifierGroupIDs: []uuid.UUID{existingGroup},
		Attributes:       map[string]string{"spice": "mild"},
	}
	soldOut := true

	tests := []struct {
		name    string
		fields  itemFields
		changed bool
		check   func(t *testing.T, m *models.MenuItem)
	}{
		{
			name:    "same values",
			fields:  itemFields{ItemCode: "B1", Name: "Burger", Price: 12.99},
			changed: false,
		},
		{
			name:    "empty optional strings keep stored values",
			fields:  itemFields{ItemCode: "B1", Name: "Burger", Price: 12.99, Description: "", Currency: ""},
			changed: false,
			check: func(t *testing.T, m *models.MenuItem) {
				assert.Equal(t, "Beef", m.Description)
				assert.Equal(t, "USD", m.Currency)
			},
		},
		{
			name:    "groups are unioned and allergens kept",
			fields:  itemFields{ItemCode: "B1", Name: "Burger", Price: 12.99, ModifierGroupIDs: []uuid.UUID{newGroup, existingGroup}},
			changed: true,
			check: func(t *testing.T, m *models.MenuItem) {
				assert.Equal(t, []uuid.UUID{existingGroup, newGroup}, m.ModifierGroupIDs)
				assert.Equal(t, []uuid.UUID{allergen}, m.AllergenIDs)
			},
		},
		{
			name:    "flags only when provided",
			fields:  itemFields{ItemCode: "B1", Name: "Burger", Price: 12.99, SoldOut: &soldOut},
			changed: true,
			check: func(t *testing.T, m *models.MenuItem) {
				assert.True(t, m.SoldOut)
				assert.True(t, m.IsAvailable)
			},
		},
		{
			name:    "attributes merge by key",
			fields:  itemFields{ItemCode: "B1", Name: "Burger", Price: 12.99, Attributes: map[string]string{"size": "L"}},
			changed: true,
			check: func(t *testing.T, m *models.MenuItem) {
				assert.Equal(t, map[string]string{"spice": "mild", "size": "L"}, m.Attributes)
			},
		},
		{
			name:    "price is rounded before compare",
			fields:  itemFields{ItemCode: "B1", Name: "Burger", Price: 12.9900001},
			changed: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, changed := tt.fields.merge(existing)
			assert.Equal(t, tt.changed, changed)
			if tt.check != nil {
				tt.check(t, merged)
			}
			assert.Equal(t, []uuid.UUID{existingGroup}, existing.ModifierGroupIDs, "stored item must not be mutated")
		})
	}
}
