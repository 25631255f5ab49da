package restaurants

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/models"
)

type memStore struct {
	rows map[uuid.UUID]*models.Restaurant
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Restaurant, error) {
	if r, ok := m.rows[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, apperr.NotFound("restaurant not found")
}

func (m *memStore) List(_ context.Context, f Filter) ([]models.Restaurant, error) {
	out := []models.Restaurant{}
	for _, r := range m.rows {
		if f.PropertyID != nil && r.PropertyID != *f.PropertyID {
			continue
		}
		if f.RestaurantID != nil && r.ID != *f.RestaurantID {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, r *models.Restaurant) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, r *models.Restaurant) error {
	if _, ok := m.rows[r.ID]; !ok {
		return apperr.NotFound("restaurant not found")
	}
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

type recordingDeleter struct{ ids []uuid.UUID }

func (d *recordingDeleter) DeleteRestaurant(_ context.Context, id uuid.UUID) error {
	d.ids = append(d.ids, id)
	return nil
}

func setup(p *auth.Principal) (*gin.Engine, *memStore, *recordingDeleter) {
	gin.SetMode(gin.TestMode)
	store := &memStore{rows: map[uuid.UUID]*models.Restaurant{}}
	del := &recordingDeleter{}
	h := NewHandler(store, del, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) { auth.SetPrincipal(c, p); c.Next() })
	r.GET("/restaurants", h.List)
	r.GET("/restaurants/:id", h.Get)
	r.POST("/restaurants", h.Create)
	r.PUT("/restaurants/:id", h.Update)
	r.DELETE("/restaurants/:id", h.Delete)
	return r, store, del
}

func send(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_PropertyScoping(t *testing.T) {
	mine, theirs := uuid.New(), uuid.New()
	admin := &auth.Principal{Kind: auth.CredentialSession, User: &models.User{Role: models.RoleAdmin, PropertyID: &mine}}
	r, store, del := setup(admin)

	own := &models.Restaurant{PropertyID: mine, Name: "Lobby Bar"}
	other := &models.Restaurant{PropertyID: theirs, Name: "Rooftop"}
	require.NoError(t, store.Create(context.Background(), own))
	require.NoError(t, store.Create(context.Background(), other))

	w := send(r, http.MethodGet, "/restaurants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.Restaurant `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Lobby Bar", body.Data[0].Name)

	assert.Equal(t, http.StatusForbidden, send(r, http.MethodGet, "/restaurants/"+other.ID.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodGet, "/restaurants/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodGet, "/restaurants/nope", nil).Code)

	w = send(r, http.MethodPost, "/restaurants", RestaurantRequest{PropertyID: theirs, Name: "Spa Cafe"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = send(r, http.MethodPost, "/restaurants", RestaurantRequest{PropertyID: mine, Name: "Spa Cafe"})
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusForbidden, send(r, http.MethodDelete, "/restaurants/"+other.ID.String(), nil).Code)
	assert.Equal(t, http.StatusOK, send(r, http.MethodDelete, "/restaurants/"+own.ID.String(), nil).Code)
	assert.Equal(t, []uuid.UUID{own.ID}, del.ids)
}

func TestHandler_UpdateKeepsActiveFlag(t *testing.T) {
	super := &auth.Principal{Kind: auth.CredentialSession, User: &models.User{Role: models.RoleSuperAdmin}}
	r, store, _ := setup(super)
	prop := uuid.New()
	rest := &models.Restaurant{PropertyID: prop, Name: "Grill", IsActive: false}
	require.NoError(t, store.Create(context.Background(), rest))

	w := send(r, http.MethodPut, "/restaurants/"+rest.ID.String(), RestaurantRequest{PropertyID: prop, Name: "Grill House"})
	require.Equal(t, http.StatusOK, w.Code)
	got, _ := store.GetByID(context.Background(), rest.ID)
	assert.Equal(t, "Grill House", got.Name)
	assert.False(t, got.IsActive)
}

func TestScope(t *testing.T) {
	prop, rest := uuid.New(), uuid.New()
	assert.Equal(t, Filter{}, Scope(&auth.Principal{User: &models.User{Role: models.RoleSuperAdmin}}))
	assert.Equal(t, &prop, Scope(&auth.Principal{User: &models.User{Role: models.RoleStaff, PropertyID: &prop}}).PropertyID)

	unscoped := Scope(&auth.Principal{User: &models.User{Role: models.RoleStaff}})
	require.NotNil(t, unscoped.PropertyID)
	assert.Equal(t, uuid.Nil, *unscoped.PropertyID)

	tok := Scope(&auth.Principal{APIToken: &models.APIToken{RestaurantID: &rest}})
	assert.Equal(t, &rest, tok.RestaurantID)
	assert.Nil(t, tok.PropertyID)
}
