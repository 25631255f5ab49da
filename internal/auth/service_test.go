package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
)

func newTestService(users *memUsers, props memProps) (*Service, *memCreds) {
	creds := &memCreds{}
	svc := NewService(NewLocalIdentityProvider(creds), users, props, NewJWTService("test-secret", 1), nil, nil)
	return svc, creds
}

func TestService_RegisterThenLogin(t *testing.T) {
	propID := uuid.New()
	users := newMemUsers()
	svc, _ := newTestService(users, memProps{ids: map[uuid.UUID]bool{propID: true}})
	ctx := context.Background()

	u, token, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "Ana@Example.com", Password: "password1", Role: "manager", PropertyID: &propID})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, models.RoleManager, u.Role)
	assert.Equal(t, "ana@example.com", u.Email)

	got, token, err := svc.Login(ctx, "ana@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, got.ID)

	_, _, err = svc.Login(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	_, _, err = svc.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
}

func TestService_RegisterRules(t *testing.T) {
	propID := uuid.New()
	ctx := context.Background()

	t.Run("first account may be SuperAdmin", func(t *testing.T) {
		svc, _ := newTestService(newMemUsers(), memProps{})
		u, _, err := svc.Register(ctx, RegisterInput{Name: "Root", Email: "root@example.com", Password: "password1", Role: "SuperAdmin"})
		require.NoError(t, err)
		assert.Equal(t, models.RoleSuperAdmin, u.Role)
		assert.Nil(t, u.PropertyID)

		_, _, err = svc.Register(ctx, RegisterInput{Name: "Second", Email: "second@example.com", Password: "password1", Role: "SuperAdmin"})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("scoped role needs an existing property", func(t *testing.T) {
		svc, _ := newTestService(newMemUsers(), memProps{ids: map[uuid.UUID]bool{propID: true}})
		_, _, err := svc.Register(ctx, RegisterInput{Name: "S", Email: "s@example.com", Password: "password1", Role: "Staff"})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		missing := uuid.New()
		_, _, err = svc.Register(ctx, RegisterInput{Name: "S", Email: "s@example.com", Password: "password1", Role: "Staff", PropertyID: &missing})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		svc, _ := newTestService(newMemUsers(), memProps{ids: map[uuid.UUID]bool{propID: true}})
		_, _, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "password1", PropertyID: &propID})
		require.NoError(t, err)
		_, _, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "A@example.com", Password: "password1", PropertyID: &propID})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("unknown role", func(t *testing.T) {
		svc, _ := newTestService(newMemUsers(), memProps{})
		_, _, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "password1", Role: "Chef"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestService_LoginProvisionsProfile(t *testing.T) {
	users := newMemUsers()
	svc, creds := newTestService(users, memProps{})
	ctx := context.Background()

	// Credential exists at the identity provider but no profile row yet.
	require.NoError(t, NewLocalIdentityProvider(creds).Register(ctx, "new@example.com", "password1"))

	u, token, err := svc.Login(ctx, "new@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, models.RoleStaff, u.Role)
	assert.Equal(t, "new", u.Name)

	n, _ := users.Count(ctx)
	assert.Equal(t, 1, n)

	again, _, err := svc.Login(ctx, "new@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	n, _ = users.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestService_Logout(t *testing.T) {
	svc, _ := newTestService(newMemUsers(), memProps{})
	err := svc.Logout(context.Background(), &Principal{Kind: CredentialAPIToken})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NoError(t, svc.Logout(context.Background(), &Principal{Kind: CredentialSession, TokenID: "jti"}))
}

func TestService_RegisterLeavesNoHalfAccount(t *testing.T) {
	propID := uuid.New()
	props := memProps{ids: map[uuid.UUID]bool{propID: true}}
	ctx := context.Background()
	in := RegisterInput{Name: "Kim", Email: "kim@example.com", Password: "password1", Role: "Staff", PropertyID: &propID}

	t.Run("credential failure removes the profile", func(t *testing.T) {
		users := newMemUsers()
		svc, creds := newTestService(users, props)
		creds.saveErr = errors.New("identity store down")

		_, _, err := svc.Register(ctx, in)
		assert.Error(t, err)
		n, _ := users.Count(ctx)
		assert.Zero(t, n)
	})

	t.Run("profile failure stores no credential", func(t *testing.T) {
		users := newMemUsers()
		users.createErr = apperr.Internal(errors.New("insert failed"))
		svc, creds := newTestService(users, props)

		_, _, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrInternal)
		assert.Empty(t, creds.hashes)

		users.createErr = nil
		_, _, err = svc.Login(ctx, in.Email, in.Password)
		assert.ErrorIs(t, err, apperr.ErrAuthentication)
		n, _ := users.Count(ctx)
		assert.Zero(t, n)
	})
}
