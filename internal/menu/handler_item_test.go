package menu

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
)

func TestCheckItemRefs(t *testing.T) {
	rid, otherRid := uuid.New(), uuid.New()
	cat := uuid.New()
	sub := &models.SubCategory{ID: uuid.New(), CategoryID: cat}
	foreignSub := &models.SubCategory{ID: uuid.New(), CategoryID: uuid.New()}
	group, foreignGroup := uuid.New(), uuid.New()
	attr := uuid.New()

	refs := itemRefs{
		sub:        sub,
		groupOwner: map[uuid.UUID]uuid.UUID{group: rid, foreignGroup: otherRid},
		attributes: map[uuid.UUID]bool{attr: true},
	}

	type testCase struct {
		name    string
		item    models.MenuItem
		refs    itemRefs
		wantErr bool
	}
	tests := []testCase{
		{"plain item", models.MenuItem{CategoryID: cat}, refs, false},
		{"matching subcategory", models.MenuItem{CategoryID: cat, SubCategoryID: &sub.ID}, refs, false},
		{"subcategory of another category", models.MenuItem{CategoryID: cat, SubCategoryID: &foreignSub.ID},
			itemRefs{sub: foreignSub, groupOwner: refs.groupOwner}, true},
		{"missing subcategory", models.MenuItem{CategoryID: cat, SubCategoryID: &foreignSub.ID},
			itemRefs{groupOwner: refs.groupOwner}, true},
		{"own modifier group", models.MenuItem{CategoryID: cat, ModifierGroupIDs: []uuid.UUID{group}}, refs, false},
		{"foreign modifier group", models.MenuItem{CategoryID: cat, ModifierGroupIDs: []uuid.UUID{foreignGroup}}, refs, true},
		{"unknown modifier group", models.MenuItem{CategoryID: cat, ModifierGroupIDs: []uuid.UUID{uuid.New()}}, refs, true},
		{"known attribute", models.MenuItem{CategoryID: cat, Attributes: map[string]string{attr.String(): "spicy"}}, refs, false},
		{"unknown attribute", models.MenuItem{CategoryID: cat, Attributes: map[string]string{"heat": "3"}}, refs, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := checkItemRefs(&tc.item, rid, tc.refs)
			if tc.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestItemFromRequest(t *testing.T) {
	g := uuid.New()
	item := itemFromRequest(MenuItemRequest{
		CategoryID:       uuid.New(),
		Name:             "  Fish Tacos ",
		Price:            12.999,
		Currency:         "eur",
		ModifierGroupIDs: []uuid.UUID{g, g},
	})
	assert.Equal(t, "Fish Tacos", item.Name)
	assert.Equal(t, 13.0, item.Price)
	assert.Equal(t, "EUR", item.Currency)
	assert.True(t, item.IsAvailable)
	assert.Equal(t, []uuid.UUID{g}, item.ModifierGroupIDs)
}
