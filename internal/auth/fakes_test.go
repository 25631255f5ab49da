package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
)

type memUsers struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*models.User
	createErr error
}

func newMemUsers(seed ...*models.User) *memUsers {
	m := &memUsers{users: map[uuid.UUID]*models.User{}}
	for _, u := range seed {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *memUsers) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

type memCreds struct {
	mu      sync.Mutex
	hashes  map[string]string
	saveErr error
}

func (m *memCreds) PasswordHash(_ context.Context, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[strings.ToLower(email)]
	if !ok {
		return "", apperr.NotFound("identity not found")
	}
	return h, nil
}

func (m *memCreds) Save(_ context.Context, email, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.hashes == nil {
		m.hashes = map[string]string{}
	}
	if _, ok := m.hashes[strings.ToLower(email)]; ok {
		return apperr.Conflict("email already registered")
	}
	m.hashes[strings.ToLower(email)] = hash
	return nil
}

type memProps struct{ ids map[uuid.UUID]bool }

func (m memProps) GetByID(_ context.Context, id uuid.UUID) (*models.Property, error) {
	if m.ids[id] {
		return &models.Property{ID: id}, nil
	}
	return nil, apperr.NotFound("property not found")
}

type memTokens struct{ byHash map[string]*models.APIToken }

func (m memTokens) GetByHash(_ context.Context, hash string) (*models.APIToken, error) {
	if t, ok := m.byHash[hash]; ok {
		return t, nil
	}
	return nil, apperr.NotFound("api token not found")
}

type memRevocations struct{ ids map[string]time.Time }

func (m *memRevocations) Revoke(_ context.Context, id string, until time.Time) error {
	m.ids[id] = until
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	_, ok := m.ids[id]
	return ok, nil
}
